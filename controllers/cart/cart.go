package cartControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/QuyenDinh23/sportify-store-sub001/models"
)

type AddCartItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Color     string `json:"color" binding:"required"` // color name or index
	Size      string `json:"size" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemInput struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity"` // <= 0 removes the item
}

func fail(c *gin.Context, err error) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// getOrCreateCart returns the user's cart, creating an empty one on first use.
func getOrCreateCart(db *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		cart = models.Cart{UserID: userID}
		if err := db.Create(&cart).Error; err != nil {
			return nil, err
		}
	}
	return &cart, nil
}

// saveCartTotals reloads the items and persists the derived cart-level sums.
func saveCartTotals(db *gorm.DB, cart *models.Cart) error {
	if err := db.Preload("Items").First(cart, "cart_id = ?", cart.CartID).Error; err != nil {
		return err
	}
	cart.RecomputeTotals()
	return db.Save(cart).Error
}

// GET /cart
func GetUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		cart, err := getOrCreateCart(db, userIDVal.(string))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// POST /cart
func AddCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var input AddCartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error(), "code": models.ErrCodeValidation})
			return
		}

		// Fetch product with its full variant matrix
		var product models.Product
		if err := db.Preload("Colors.Sizes").First(&product, "id = ?", input.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, models.NewAppError(models.ErrCodeNotFound, "product does not exist"))
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate product"})
			return
		}

		color, err := product.ResolveColor(input.Color)
		if err != nil {
			fail(c, err)
			return
		}
		entry, err := color.FindSize(input.Size)
		if err != nil {
			fail(c, err)
			return
		}
		available := entry.Quantity

		cart, err := getOrCreateCart(db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		// Same (product, color, size) already in the cart → merge quantities,
		// re-validated against the fresh ceiling.
		var item models.CartItem
		err = db.Where("cart_id = ? AND product_id = ? AND color_name = ? AND size = ?",
			cart.CartID, product.ID, color.Name, input.Size).First(&item).Error
		if err == nil {
			// The ceiling is re-checked inside the UPDATE itself, so two
			// concurrent adds cannot stack the row past it. All right-hand
			// sides see the pre-update quantity.
			res := db.Model(&models.CartItem{}).
				Where("id = ? AND quantity + ? <= ?", item.ID, input.Quantity, available).
				Updates(map[string]interface{}{
					"quantity":        gorm.Expr("quantity + ?", input.Quantity),
					"subtotal":        gorm.Expr("(quantity + ?) * unit_price", input.Quantity),
					"available_stock": available,
					"added_at":        time.Now(),
				})
			if res.Error != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
				return
			}
			if res.RowsAffected == 0 {
				fail(c, models.ErrInsufficientStock(product.Name, available, item.Quantity, input.Quantity))
				return
			}
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			if input.Quantity > available {
				fail(c, models.ErrInsufficientStock(product.Name, available, 0, input.Quantity))
				return
			}
			unitPrice := product.EffectivePrice()
			image := product.Image()
			item = models.CartItem{
				CartID:         cart.CartID,
				ProductID:      product.ID,
				ProductName:    product.Name,
				ProductImage:   image,
				ColorName:      color.Name,
				ColorCode:      color.Code,
				ColorImage:     color.Image,
				Size:           input.Size,
				Quantity:       input.Quantity,
				UnitPrice:      unitPrice,
				Subtotal:       unitPrice * float64(input.Quantity),
				AvailableStock: available,
				AddedAt:        time.Now(),
			}
			if err := db.Create(&item).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
				return
			}
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart item"})
			return
		}

		if err := saveCartTotals(db, cart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart totals"})
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// PUT /cart/item
func UpdateCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var input UpdateCartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error(), "code": models.ErrCodeValidation})
			return
		}

		var cart models.Cart
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			fail(c, models.NewAppError(models.ErrCodeNotFound, "cart not found"))
			return
		}

		var item models.CartItem
		if err := db.Where("id = ? AND cart_id = ?", input.ItemID, cart.CartID).First(&item).Error; err != nil {
			fail(c, models.NewAppError(models.ErrCodeNotFound, "cart item not found"))
			return
		}

		// Zero or negative quantity removes the item.
		if input.Quantity <= 0 {
			if err := db.Delete(&item).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove cart item"})
				return
			}
		} else {
			// Re-resolve against the live product; the snapshot's ceiling is stale.
			var product models.Product
			if err := db.Preload("Colors.Sizes").First(&product, "id = ?", item.ProductID).Error; err != nil {
				fail(c, models.NewAppError(models.ErrCodeNotFound, "product no longer exists"))
				return
			}
			color, err := product.ResolveColor(item.ColorName)
			if err != nil {
				fail(c, err)
				return
			}
			entry, err := color.FindSize(item.Size)
			if err != nil {
				fail(c, err)
				return
			}
			if input.Quantity > entry.Quantity {
				fail(c, models.ErrInsufficientStock(product.Name, entry.Quantity, 0, input.Quantity))
				return
			}
			item.Quantity = input.Quantity
			item.Subtotal = item.UnitPrice * float64(input.Quantity)
			item.AvailableStock = entry.Quantity
			item.AddedAt = time.Now()
			if err := db.Save(&item).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
				return
			}
		}

		if err := saveCartTotals(db, &cart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart totals"})
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// DELETE /cart/item/:item_id
func DeleteCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)
		itemID := c.Param("item_id")

		var cart models.Cart
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			// No cart means nothing to remove; removal is idempotent.
			c.JSON(http.StatusOK, gin.H{"message": "Cart item deleted"})
			return
		}

		if err := db.Where("id = ? AND cart_id = ?", itemID, cart.CartID).
			Delete(&models.CartItem{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}

		if err := saveCartTotals(db, &cart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart totals"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart item deleted"})
	}
}

// DELETE /cart
func ClearUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var cart models.Cart
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
			return
		}

		if err := db.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		cart.Items = nil
		cart.RecomputeTotals()
		if err := db.Save(&cart).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart totals"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}
