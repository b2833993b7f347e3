package cartControllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/QuyenDinh23/sportify-store-sub001/models"
)

const testUserID = "user-1"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.Color{}, &models.SizeEntry{},
		&models.Cart{}, &models.CartItem{},
	))
	return db
}

// newTestRouter stands in for the JWT middleware by injecting the identity
// directly, the way the auth collaborator would.
func newTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", testUserID) })
	r.GET("/cart", GetUserCart(db))
	r.POST("/cart", AddCartItem(db))
	r.PUT("/cart/item", UpdateCartItem(db))
	r.DELETE("/cart/item/:item_id", DeleteCartItem(db))
	r.DELETE("/cart", ClearUserCart(db))
	return r
}

func seedProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()
	product := models.Product{
		Name:     "Air Runner 2",
		Price:    100,
		Discount: 0,
		Colors: []models.Color{
			{Name: "Black", Code: "#1a1a1a", Sizes: []models.SizeEntry{
				{Size: "42", Quantity: 3},
			}},
		},
	}
	product.StockQuantity = product.TotalStock()
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func currentCart(t *testing.T, db *gorm.DB) *models.Cart {
	t.Helper()
	var cart models.Cart
	require.NoError(t, db.Preload("Items").Where("user_id = ?", testUserID).First(&cart).Error)
	return &cart
}

func TestGetCartCreatesEmptyCart(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)

	w := doJSON(t, r, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cart := currentCart(t, db)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalQuantity)
}

func TestAddItemSnapshotsVariant(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	w := doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	cart := currentCart(t, db)
	require.Len(t, cart.Items, 1)
	item := cart.Items[0]
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 3, item.AvailableStock)
	assert.Equal(t, 100.0, item.UnitPrice)
	assert.Equal(t, 200.0, item.Subtotal)
	assert.Equal(t, "Black", item.ColorName)
	assert.Equal(t, "#1a1a1a", item.ColorCode)
	assert.Equal(t, 2, cart.TotalQuantity)
	assert.Equal(t, 200.0, cart.TotalPrice)
}

func TestAddItemInvalidVariant(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	w := doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Red", "size": "42", "quantity": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(models.ErrCodeInvalidVariant))

	w = doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "45", "quantity": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(models.ErrCodeInvalidVariant))
}

// Scenario: stock 3, hold 2, add 2 more → rejected with the ceiling, cart
// unchanged.
func TestAddItemMergeRespectsCeiling(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	w := doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 2,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.AppError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrCodeInsufficientStock, resp.Code)
	assert.EqualValues(t, 3, resp.Details["available"])
	assert.EqualValues(t, 2, resp.Details["in_cart"])

	cart := currentCart(t, db)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestAddItemMergeWithinCeiling(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 1,
	})
	w := doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	cart := currentCart(t, db)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 300.0, cart.TotalPrice)
}

// The merge arithmetic runs inside the UPDATE itself, so repeated adds
// accumulate against the stored row and stop exactly at the ceiling.
func TestAddItemMergeStopsAtCeiling(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, http.MethodPost, "/cart", gin.H{
			"product_id": product.ID, "color": "Black", "size": "42", "quantity": 1,
		})
		require.Equal(t, http.StatusOK, w.Code, "add %d", i+1)
	}

	w := doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(models.ErrCodeInsufficientStock))

	cart := currentCart(t, db)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 300.0, cart.Items[0].Subtotal)
}

func TestUpdateItemUsesFreshCeiling(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 2,
	})
	cart := currentCart(t, db)
	itemID := cart.Items[0].ID

	// Stock drops to 1 after the snapshot was taken.
	require.NoError(t, db.Model(&models.SizeEntry{}).
		Where("color_id = (SELECT id FROM colors WHERE product_id = ?)", product.ID).
		Update("quantity", 1).Error)

	w := doJSON(t, r, http.MethodPut, "/cart/item", gin.H{"item_id": itemID, "quantity": 2})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(models.ErrCodeInsufficientStock))

	w = doJSON(t, r, http.MethodPut, "/cart/item", gin.H{"item_id": itemID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)

	cart = currentCart(t, db)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, 1, cart.Items[0].AvailableStock)
	assert.Equal(t, 100.0, cart.TotalPrice)
}

func TestUpdateItemZeroQuantityRemoves(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 2,
	})
	cart := currentCart(t, db)
	itemID := cart.Items[0].ID

	w := doJSON(t, r, http.MethodPut, "/cart/item", gin.H{"item_id": itemID, "quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)

	cart = currentCart(t, db)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalQuantity)
	assert.Equal(t, 0.0, cart.TotalPrice)
}

func TestDeleteItemIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 1,
	})
	cart := currentCart(t, db)
	itemID := cart.Items[0].ID

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/cart/item/%d", itemID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second delete of the same item is still a 200.
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/cart/item/%d", itemID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	cart = currentCart(t, db)
	assert.Empty(t, cart.Items)
}

func TestClearCart(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(db)
	product := seedProduct(t, db)

	doJSON(t, r, http.MethodPost, "/cart", gin.H{
		"product_id": product.ID, "color": "Black", "size": "42", "quantity": 2,
	})

	w := doJSON(t, r, http.MethodDelete, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cart := currentCart(t, db)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalQuantity)

	// Clearing an already-empty cart is fine too.
	w = doJSON(t, r, http.MethodDelete, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
