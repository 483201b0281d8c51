package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
	"github.com/orderflow/orderflow-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}))
	return conn
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		Price:         decimal.NewFromFloat(9.99),
		StockQuantity: stock,
		IsActive:      active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestRepositoryListActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		seedProduct(t, db, fmt.Sprintf("rose-%02d", i), 5, true)
	}
	seedProduct(t, db, "hidden", 5, false)

	params := pagination.Normalize(0, 10, "name", "asc")
	rows, total, err := repo.ListActive(ctx, params)
	require.NoError(t, err)
	require.EqualValues(t, 25, total, "inactive products must not count")
	require.Len(t, rows, 10)
	require.Equal(t, "rose-00", rows[0].Name)

	params = pagination.Normalize(2, 10, "name", "asc")
	rows, _, err = repo.ListActive(ctx, params)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Equal(t, "rose-20", rows[0].Name)
}

func TestRepositoryListByCategory(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	category := &models.Category{Name: "bouquets"}
	require.NoError(t, db.Create(category).Error)

	inCat := seedProduct(t, db, "tulip bundle", 3, true)
	require.NoError(t, db.Model(inCat).Update("category_id", category.ID).Error)
	inactive := seedProduct(t, db, "retired bundle", 3, false)
	require.NoError(t, db.Model(inactive).Update("category_id", category.ID).Error)
	seedProduct(t, db, "uncategorized", 3, true)

	rows, err := repo.ListByCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "tulip bundle", rows[0].Name)
	require.NotNil(t, rows[0].Category)
	require.Equal(t, "bouquets", rows[0].Category.Name)
}

func TestRepositoryDecrementStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, "orchid", 5, true)

	ok, err := repo.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	require.Equal(t, 3, reloaded.StockQuantity)

	// Asking for more than remains must be rejected without touching the row.
	ok, err = repo.DecrementStock(ctx, product.ID, 4)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	require.Equal(t, 3, reloaded.StockQuantity)

	ok, err = repo.DecrementStock(ctx, uuid.New(), 1)
	require.NoError(t, err)
	require.False(t, ok, "unknown product must not decrement")
}

func TestRepositoryFindByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
