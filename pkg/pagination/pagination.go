package pagination

import "strings"

const (
	// DefaultSize is the standard page size when one is not provided.
	DefaultSize = 20
	// MaxSize caps how many rows any page query can request.
	MaxSize = 100

	// DefaultSortField orders listings by recency unless asked otherwise.
	DefaultSortField = "created_at"
	// DefaultSortDir pairs with DefaultSortField.
	DefaultSortDir = "desc"
)

// sortFields whitelists the columns a caller may order by. Anything else
// normalizes to the default, which keeps cache keys deterministic.
var sortFields = map[string]struct{}{
	"name":       {},
	"price":      {},
	"created_at": {},
}

// Params holds normalized page/size/sort inputs for listing queries.
type Params struct {
	Page      int
	Size      int
	SortField string
	SortDir   string
}

// Normalize clamps page/size and resolves the sort pair against the
// whitelist. The zero value normalizes to page 0, size 20, created_at desc.
func Normalize(page, size int, sortField, sortDir string) Params {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	field := strings.ToLower(strings.TrimSpace(sortField))
	if _, ok := sortFields[field]; !ok {
		field = DefaultSortField
	}

	dir := strings.ToLower(strings.TrimSpace(sortDir))
	if dir != "asc" && dir != "desc" {
		dir = DefaultSortDir
	}

	return Params{Page: page, Size: size, SortField: field, SortDir: dir}
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	return p.Page * p.Size
}

// OrderClause renders the ORDER BY expression. Safe for interpolation since
// both parts come from closed sets.
func (p Params) OrderClause() string {
	return p.SortField + " " + p.SortDir
}

// Result carries one page of rows plus the total row count.
type Result[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
}
