package warrantyControllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/QuyenDinh23/sportify-store-sub001/models"
)

// -------- Request Structs --------

type CreateClaimRequest struct {
	OrderID      uint       `json:"order_id" binding:"required"`
	ProductID    uint       `json:"product_id" binding:"required"`
	Reason       string     `json:"reason" binding:"required"`
	Description  string     `json:"description" binding:"required"`
	Attachments  []string   `json:"attachments" binding:"required,min=1"`
	IssueDate    *time.Time `json:"issue_date"`
	ContactPhone string     `json:"contact_phone"`
	ContactEmail string     `json:"contact_email"`
}

type ProcessClaimRequest struct {
	Action             string `json:"action" binding:"required"` // approve | replace | reject
	ReviewerID         string `json:"reviewer_id" binding:"required"`
	AdminNote          string `json:"admin_note"`
	RejectReason       string `json:"reject_reason"`
	ResolutionNote     string `json:"resolution_note"`
	ReplacementOrderID *uint  `json:"replacement_order_id"`
}

// UpdateClaimStatusRequest is the raw administrative override; it skips the
// process preconditions and should stay the minority path.
type UpdateClaimStatusRequest struct {
	Status         string `json:"status"`
	Result         string `json:"result"`
	AdminNote      string `json:"admin_note"`
	ResolutionNote string `json:"resolution_note"`
	ActionBy       string `json:"action_by"`
}

func fail(c *gin.Context, err error) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// -------- Core Logic --------

// CreateClaim runs the full gate order: ownership, product membership,
// warranty window, then the one-active-claim rule.
func CreateClaim(db *gorm.DB, userID string, req CreateClaimRequest) (*models.WarrantyClaim, error) {
	reason, err := models.ParseWarrantyReason(req.Reason)
	if err != nil {
		return nil, models.NewAppError(models.ErrCodeValidation, err.Error())
	}

	// Order must exist and belong to the claimant; anything else is a uniform 404.
	var order models.Order
	if err := db.Preload("Items").
		Where("id = ? AND user_id = ?", req.OrderID, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAppError(models.ErrCodeNotFound, "order not found")
		}
		return nil, err
	}

	// The product must be one of the order's line items.
	found := false
	for _, item := range order.Items {
		if item.ProductID == req.ProductID {
			found = true
			break
		}
	}
	if !found {
		return nil, models.NewAppError(models.ErrCodeNotFound, "product is not part of this order")
	}

	// Unscoped: a product delisted after the sale still carries its warranty.
	var product models.Product
	if err := db.Unscoped().First(&product, "id = ?", req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAppError(models.ErrCodeNotFound, "product not found")
		}
		return nil, err
	}

	expiry := models.WarrantyExpiryFor(&order, product.WarrantyMonths)
	if time.Now().After(expiry) {
		return nil, models.NewAppError(models.ErrCodeWarrantyExpired,
			"warranty period has expired for this product").
			WithDetail("warranty_expiry", expiry)
	}

	// One active claim per (customer, order, product). This pre-check only
	// exists for the common sequential case; the partial unique index on the
	// claim table is the authoritative guard under concurrency.
	var active int64
	if err := db.Model(&models.WarrantyClaim{}).
		Where("user_id = ? AND order_id = ? AND product_id = ? AND status IN ?",
			userID, req.OrderID, req.ProductID, models.ActiveWarrantyStatuses).
		Count(&active).Error; err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, models.NewAppError(models.ErrCodeDuplicateClaim,
			"an active warranty claim already exists for this item")
	}

	claim := models.WarrantyClaim{
		UserID:         userID,
		OrderID:        req.OrderID,
		ProductID:      req.ProductID,
		Reason:         reason,
		Description:    req.Description,
		Attachments:    req.Attachments,
		IssueDate:      req.IssueDate,
		ContactPhone:   req.ContactPhone,
		ContactEmail:   req.ContactEmail,
		Status:         models.WarrantyStatusPending,
		WarrantyExpiry: expiry,
	}
	if err := db.Create(&claim).Error; err != nil {
		// A racing create that slipped past the count lands on the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewAppError(models.ErrCodeDuplicateClaim,
				"an active warranty claim already exists for this item")
		}
		return nil, err
	}
	return &claim, nil
}

// ProcessClaim drives the guarded transitions out of pending:
// approve → processing, replace → completed (with a replacement order),
// reject → rejected (with a reason).
func ProcessClaim(db *gorm.DB, claimID string, req ProcessClaimRequest) (*models.WarrantyClaim, error) {
	var claim models.WarrantyClaim
	if err := db.First(&claim, "id = ?", claimID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAppError(models.ErrCodeNotFound, "warranty claim not found")
		}
		return nil, err
	}
	if claim.Status != models.WarrantyStatusPending {
		return nil, models.NewAppError(models.ErrCodeInvalidTransition,
			"claim has already been processed").
			WithDetail("status", claim.Status)
	}

	now := time.Now()
	switch strings.ToLower(req.Action) {
	case "approve":
		claim.Status = models.WarrantyStatusProcessing
		claim.Result = models.WarrantyResultApproved
	case "replace":
		if req.ReplacementOrderID == nil {
			return nil, models.NewAppError(models.ErrCodeValidation, "replacement_order_id is required for replace")
		}
		var replacement models.Order
		if err := db.First(&replacement, "id = ?", *req.ReplacementOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewAppError(models.ErrCodeNotFound, "replacement order not found")
			}
			return nil, err
		}
		claim.Status = models.WarrantyStatusCompleted
		claim.Result = models.WarrantyResultReplaced
		claim.ReplacementOrderID = req.ReplacementOrderID
		claim.ResolutionDate = &now
	case "reject":
		if req.RejectReason == "" {
			return nil, models.NewAppError(models.ErrCodeValidation, "reject_reason is required for reject")
		}
		claim.Status = models.WarrantyStatusRejected
		claim.Result = models.WarrantyResultRejected
		claim.RejectReason = req.RejectReason
		claim.ResolutionDate = &now
	default:
		return nil, models.NewAppError(models.ErrCodeValidation, "invalid action: "+req.Action)
	}

	claim.AdminNote = req.AdminNote
	claim.ResolutionNote = req.ResolutionNote
	claim.ActionBy = req.ReviewerID
	if err := db.Save(&claim).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

// -------- Handlers --------

// POST /warranty
func CreateClaimHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CreateClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrCodeValidation})
			return
		}
		claim, err := CreateClaim(db, userIDVal.(string), req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, claim)
	}
}

// POST /warranty/:id/process
func ProcessClaimHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrCodeValidation})
			return
		}
		claim, err := ProcessClaim(db, c.Param("id"), req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, claim)
	}
}

// PATCH /warranty/:id/status
func UpdateClaimStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateClaimStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrCodeValidation})
			return
		}

		var claim models.WarrantyClaim
		if err := db.First(&claim, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, models.NewAppError(models.ErrCodeNotFound, "warranty claim not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if req.Status != "" {
			status, err := models.ParseWarrantyStatus(req.Status)
			if err != nil {
				fail(c, models.NewAppError(models.ErrCodeValidation, err.Error()))
				return
			}
			claim.Status = status
		}
		if req.Result != "" {
			claim.Result = models.WarrantyResult(strings.ToLower(req.Result))
		}
		if req.AdminNote != "" {
			claim.AdminNote = req.AdminNote
		}
		if req.ResolutionNote != "" {
			claim.ResolutionNote = req.ResolutionNote
		}
		if req.ActionBy != "" {
			claim.ActionBy = req.ActionBy
		}
		if err := db.Save(&claim).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update claim"})
			return
		}
		c.JSON(http.StatusOK, claim)
	}
}

// GET /warranty/:id — scoped to the owner; unknown and foreign ids look alike.
func GetClaimByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var claim models.WarrantyClaim
		if err := db.Where("id = ? AND user_id = ?", c.Param("id"), userIDVal.(string)).
			First(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, models.NewAppError(models.ErrCodeNotFound, "warranty claim not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, claim)
	}
}

// GET /warranty/my-requests
func GetMyClaimsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var claims []models.WarrantyClaim
		if err := db.Where("user_id = ?", userIDVal.(string)).
			Order("created_at DESC").
			Find(&claims).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, claims)
	}
}

// GET /warranty — admin listing with status/reason filters.
func GetAllClaimsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pagination(c)

		query := db.Model(&models.WarrantyClaim{})
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", strings.ToLower(status))
		}
		if reason := c.Query("reason"); reason != "" {
			query = query.Where("reason = ?", strings.ToLower(reason))
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var claims []models.WarrantyClaim
		if err := query.Order("created_at DESC").
			Offset((page - 1) * limit).Limit(limit).
			Find(&claims).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"claims": claims, "total": total, "page": page, "limit": limit})
	}
}

// GET /warranty/statistics
func GetClaimStatisticsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		type bucket struct {
			Key   string `json:"key"`
			Count int64  `json:"count"`
		}

		var total int64
		if err := db.Model(&models.WarrantyClaim{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var byStatus []bucket
		if err := db.Model(&models.WarrantyClaim{}).
			Select("status AS key, COUNT(*) AS count").
			Group("status").Scan(&byStatus).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var byReason []bucket
		if err := db.Model(&models.WarrantyClaim{}).
			Select("reason AS key, COUNT(*) AS count").
			Group("reason").Scan(&byReason).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total":     total,
			"by_status": byStatus,
			"by_reason": byReason,
		})
	}
}

// DELETE /warranty/:id — administrative purge, the only way a claim ever
// disappears.
func DeleteClaimHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := db.Where("id = ?", c.Param("id")).Delete(&models.WarrantyClaim{})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete claim"})
			return
		}
		if result.RowsAffected == 0 {
			fail(c, models.NewAppError(models.ErrCodeNotFound, "warranty claim not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Warranty claim deleted"})
	}
}
