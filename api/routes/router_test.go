package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authsvc "github.com/orderflow/orderflow-backend/internal/auth"
	cartsvc "github.com/orderflow/orderflow-backend/internal/cart"
	"github.com/orderflow/orderflow-backend/internal/catalog"
	ordersvc "github.com/orderflow/orderflow-backend/internal/orders"
	"github.com/orderflow/orderflow-backend/internal/users"
	pkgauth "github.com/orderflow/orderflow-backend/pkg/auth"
	"github.com/orderflow/orderflow-backend/pkg/config"
	"github.com/orderflow/orderflow-backend/pkg/db"
	"github.com/orderflow/orderflow-backend/pkg/db/models"
	"github.com/orderflow/orderflow-backend/pkg/enums"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "orderflow", ExpirationMinutes: 10},
		Password: config.PasswordConfig{
			ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB, *config.Config) {
	t.Helper()
	// A plain file::memory: DSN gives every pool connection its own empty
	// database; a uniquely named shared-cache DSN keeps the fixture isolated
	// per test while letting all connections see the migrated schema.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Product{},
		&models.Cart{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{},
	))

	cfg := testConfig()
	client := db.NewWithConn(conn)
	productRepo := catalog.NewRepository(conn)

	catalogSvc, err := catalog.NewService(productRepo, nil, nil)
	require.NoError(t, err)
	cartService, err := cartsvc.NewService(cartsvc.NewRepository(conn), client, productRepo)
	require.NoError(t, err)
	orderService, err := ordersvc.NewService(
		ordersvc.NewRepository(conn), client, cartsvc.NewRepository(conn), productRepo, nil, nil, nil,
	)
	require.NoError(t, err)
	authService, err := authsvc.NewService(users.NewRepository(conn), cfg.JWT, cfg.Password, nil)
	require.NoError(t, err)

	router := NewRouter(cfg, nil, client, nil, nil, authService, catalogSvc, cartService, orderService)
	return router, conn, cfg
}

func mintToken(t *testing.T, cfg *config.Config, role enums.UserRole) (string, string) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
	})
	require.NoError(t, err)
	return token, userID.String()
}

func TestHealthLive(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-OrderFlow-Env"))
}

func TestPublicProductListingNeedsNoAuth(t *testing.T) {
	router, conn, _ := newTestRouter(t)
	require.NoError(t, conn.Create(&models.Product{
		Name:          "rose",
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: 5,
		IsActive:      true,
	}).Error)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/?page=0&size=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Items      []json.RawMessage `json:"items"`
			TotalCount int64             `json:"total_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.EqualValues(t, 1, envelope.Data.TotalCount)
}

func TestCartRoutesRequireAuth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartFlowThroughHTTP(t *testing.T) {
	router, conn, cfg := newTestRouter(t)
	product := &models.Product{
		Name:          "tulip",
		Price:         decimal.RequireFromString("4.00"),
		StockQuantity: 5,
		IsActive:      true,
	}
	require.NoError(t, conn.Create(product).Error)

	token, _ := mintToken(t, cfg, enums.UserRoleCustomer)

	body := bytes.NewBufferString(fmt.Sprintf(`{"product_id":%q,"quantity":2}`, product.ID.String()))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Items []struct {
				Quantity int `json:"quantity"`
			} `json:"items"`
			TotalAmount decimal.Decimal `json:"total_amount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Items, 1)
	require.Equal(t, 2, envelope.Data.Items[0].Quantity)
	require.Equal(t, "8", envelope.Data.TotalAmount.String())
}

func TestAdminRoutesAreRoleGated(t *testing.T) {
	router, _, cfg := newTestRouter(t)

	payload := `{"name":"peony","price":12.5,"stock_quantity":3}`

	customerToken, _ := mintToken(t, cfg, enums.UserRoleCustomer)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products/", bytes.NewBufferString(payload))
	req.Header.Set("Authorization", "Bearer "+customerToken)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	adminToken, _ := mintToken(t, cfg, enums.UserRoleAdmin)
	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/products/", bytes.NewBufferString(payload))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
