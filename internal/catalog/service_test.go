package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
	pkgerrors "github.com/orderflow/orderflow-backend/pkg/errors"
	"github.com/orderflow/orderflow-backend/pkg/pagination"
	"github.com/orderflow/orderflow-backend/pkg/redis"
)

// fakeCacheStore is an in-memory stand-in for the redis client.
type fakeCacheStore struct {
	data map[string]string
	gets int
	sets int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{data: map[string]string{}}
}

func (f *fakeCacheStore) Get(_ context.Context, key string) (string, error) {
	f.gets++
	val, ok := f.data[key]
	if !ok {
		return "", redis.ErrCacheMiss
	}
	return val, nil
}

func (f *fakeCacheStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.sets++
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (f *fakeCacheStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCacheStore) DelByPrefix(_ context.Context, prefix string) error {
	for key := range f.data {
		if strings.HasPrefix(key, prefix) {
			delete(f.data, key)
		}
	}
	return nil
}

func (f *fakeCacheStore) ProductKey(productID string) string {
	return "of:catalog:product:" + productID
}

func (f *fakeCacheStore) ProductListPageKey(page, size int, sortField, sortDir string) string {
	return fmt.Sprintf("of:catalog:product_list:active_page_%d_size_%d_sort_%s_%s", page, size, sortField, sortDir)
}

func (f *fakeCacheStore) ProductListCategoryKey(categoryID string) string {
	return "of:catalog:product_list:category_" + categoryID
}

func (f *fakeCacheStore) ProductListPrefix() string {
	return "of:catalog:product_list:"
}

func newTestService(t *testing.T) (Service, *fakeCacheStore, *Repository) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	store := newFakeCacheStore()
	svc, err := NewService(repo, NewCache(store, time.Hour, nil), nil)
	require.NoError(t, err)
	return svc, store, repo
}

func TestGetProductCacheAside(t *testing.T) {
	svc, store, repo := newTestService(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Product{
		Name:          "peony",
		Price:         decimal.RequireFromString("12.50"),
		StockQuantity: 4,
		IsActive:      true,
	})
	require.NoError(t, err)

	// First read misses and populates the cache.
	dto, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "peony", dto.Name)
	require.Contains(t, store.data, store.ProductKey(created.ID.String()))

	// Second read is served from cache even after the row disappears.
	require.NoError(t, repo.Delete(ctx, created.ID))
	dto, err = svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "peony", dto.Name)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetProduct(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestGetProductCorruptPayloadFallsBack(t *testing.T) {
	svc, store, repo := newTestService(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Product{
		Name:     "lily",
		Price:    decimal.RequireFromString("5.00"),
		IsActive: true,
	})
	require.NoError(t, err)

	store.data[store.ProductKey(created.ID.String())] = "{not json"

	dto, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "lily", dto.Name)
}

func TestListActiveProductsCachesNormalizedPage(t *testing.T) {
	svc, store, repo := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &models.Product{
			Name:          fmt.Sprintf("daisy-%d", i),
			Price:         decimal.RequireFromString("3.00"),
			StockQuantity: 9,
			IsActive:      true,
		})
		require.NoError(t, err)
	}

	page, err := svc.ListActiveProducts(ctx, pagination.Params{SortField: "DROP TABLE", SortDir: "sideways"})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.TotalCount)
	require.Len(t, page.Items, 3)

	// Garbage sort input normalizes to the default key.
	key := store.ProductListPageKey(0, pagination.DefaultSize, pagination.DefaultSortField, pagination.DefaultSortDir)
	require.Contains(t, store.data, key)

	// A repeated read with equivalent params is a cache hit.
	getsBefore := store.gets
	again, err := svc.ListActiveProducts(ctx, pagination.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 3, again.TotalCount)
	require.Equal(t, getsBefore+1, store.gets)
}

func TestListProductsByCategorySkipsCachingEmptyResult(t *testing.T) {
	svc, store, repo := newTestService(t)
	ctx := context.Background()

	category := &models.Category{Name: "seasonal"}
	db := repo.db
	require.NoError(t, db.Create(category).Error)

	dtos, err := svc.ListProductsByCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Empty(t, dtos)
	require.NotContains(t, store.data, store.ProductListCategoryKey(category.ID.String()))

	_, err = repo.Create(ctx, &models.Product{
		Name:       "winter wreath",
		Price:      decimal.RequireFromString("20.00"),
		CategoryID: &category.ID,
		IsActive:   true,
	})
	require.NoError(t, err)

	dtos, err = svc.ListProductsByCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	require.Contains(t, store.data, store.ProductListCategoryKey(category.ID.String()))
}

func TestListProductsByCategoryUnknownCategory(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ListProductsByCategory(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProductInvalidatesCache(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:          "fern",
		Price:         decimal.RequireFromString("7.00"),
		StockQuantity: 2,
	})
	require.NoError(t, err)

	// Warm the single-product key and a listing key.
	_, err = svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.ListActiveProducts(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Contains(t, store.data, store.ProductKey(created.ID.String()))

	newName := "boston fern"
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, "boston fern", updated.Name)

	require.NotContains(t, store.data, store.ProductKey(created.ID.String()))
	for key := range store.data {
		require.False(t, strings.HasPrefix(key, store.ProductListPrefix()),
			"listing keys must be evicted on update, found %s", key)
	}

	// The next read reflects the new name.
	dto, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "boston fern", dto.Name)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "freebie",
		Price: decimal.RequireFromString("-1.00"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	unknown := uuid.New()
	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name:       "orphan",
		Price:      decimal.RequireFromString("1.00"),
		CategoryID: &unknown,
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDeleteProductEvictsAndReports(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "cactus",
		Price: decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Contains(t, store.data, store.ProductKey(created.ID.String()))

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	require.NotContains(t, store.data, store.ProductKey(created.ID.String()))

	_, err = svc.GetProduct(ctx, created.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestServiceServesWithoutCache(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	// With no cache wired every operation goes straight to the store; the
	// read/write paths must behave identically, just without acceleration.
	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:          "snowdrop",
		Price:         decimal.RequireFromString("3.50"),
		StockQuantity: 6,
	})
	require.NoError(t, err)

	dto, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "snowdrop", dto.Name)

	page, err := svc.ListActiveProducts(ctx, pagination.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.TotalCount)

	stock := 5
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{StockQuantity: &stock})
	require.NoError(t, err)
	require.Equal(t, 5, updated.StockQuantity)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
}
