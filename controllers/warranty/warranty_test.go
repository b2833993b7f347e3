package warrantyControllers

import (
	"errors"
	"fmt"
	"testing"
	"time"

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
	dsn := fmt.Sprintf("file:warranty_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Color{}, &models.SizeEntry{},
		&models.Order{}, &models.OrderItem{}, &models.WarrantyClaim{},
	))
	require.NoError(t, db.Create(&models.User{ID: testUserID, Email: "user1@example.com"}).Error)
	return db
}

// seedDeliveredOrder creates a product and a delivered order containing it,
// with the delivery the given number of days in the past.
func seedDeliveredOrder(t *testing.T, db *gorm.DB, warrantyMonths, daysAgo int) (*models.Product, *models.Order) {
	t.Helper()
	product := models.Product{Name: "Air Runner 2", Price: 100, WarrantyMonths: warrantyMonths}
	require.NoError(t, db.Create(&product).Error)

	delivered := time.Now().AddDate(0, 0, -daysAgo)
	order := models.Order{
		UserID:      testUserID,
		OrderNumber: fmt.Sprintf("TEST-%s-%d", t.Name(), daysAgo),
		Status:      models.OrderStatusDelivered,
		DeliveredAt: &delivered,
		Items: []models.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, ColorName: "Black", Size: "42", Quantity: 1, Price: 100, Subtotal: 100},
		},
	}
	require.NoError(t, db.Create(&order).Error)
	return &product, &order
}

func claimReq(orderID, productID uint) CreateClaimRequest {
	return CreateClaimRequest{
		OrderID:     orderID,
		ProductID:   productID,
		Reason:      "defective",
		Description: "sole detached after two weeks",
		Attachments: []string{"uploads/claims/photo1.jpg"},
	}
}

func requireAppCode(t *testing.T, err error, code models.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateClaimWithinWarranty(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 300)

	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	assert.Equal(t, models.WarrantyStatusPending, claim.Status)
	assert.Equal(t, models.WarrantyReasonDefective, claim.Reason)
	assert.WithinDuration(t, order.DeliveredAt.AddDate(0, 12, 0), claim.WarrantyExpiry, time.Second)
}

func TestCreateClaimExpired(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 400)

	_, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	requireAppCode(t, err, models.ErrCodeWarrantyExpired)
}

func TestCreateClaimFallsBackToCreatedAt(t *testing.T) {
	db := newTestDB(t)
	product := models.Product{Name: "Court Pro", Price: 100, WarrantyMonths: 12}
	require.NoError(t, db.Create(&product).Error)
	order := models.Order{
		UserID:      testUserID,
		OrderNumber: "TEST-NO-DELIVERY",
		Status:      models.OrderStatusPending,
		Items:       []models.OrderItem{{ProductID: product.ID, Quantity: 1}},
	}
	require.NoError(t, db.Create(&order).Error)

	// No DeliveredAt: the window starts at the order's creation.
	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)
	assert.WithinDuration(t, order.CreatedAt.AddDate(0, 12, 0), claim.WarrantyExpiry, time.Second)
}

func TestCreateClaimForeignOrderIsNotFound(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)

	_, err := CreateClaim(db, "someone-else", claimReq(order.ID, product.ID))
	requireAppCode(t, err, models.ErrCodeNotFound)
}

func TestCreateClaimProductNotInOrder(t *testing.T) {
	db := newTestDB(t)
	_, order := seedDeliveredOrder(t, db, 12, 10)
	other := models.Product{Name: "Court Pro", Price: 100}
	require.NoError(t, db.Create(&other).Error)

	_, err := CreateClaim(db, testUserID, claimReq(order.ID, other.ID))
	requireAppCode(t, err, models.ErrCodeNotFound)
}

func TestCreateClaimInvalidReason(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)

	req := claimReq(order.ID, product.ID)
	req.Reason = "just because"
	_, err := CreateClaim(db, testUserID, req)
	requireAppCode(t, err, models.ErrCodeValidation)
}

func TestDuplicateActiveClaim(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)

	_, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	_, err = CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	requireAppCode(t, err, models.ErrCodeDuplicateClaim)
}

// The unique index on active claims must hold even for writes that skip the
// handler's pre-insert count, the way a concurrent create would.
func TestActiveClaimUniqueIndexBlocksSecondInsert(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)

	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	dup := models.WarrantyClaim{
		UserID:         testUserID,
		OrderID:        order.ID,
		ProductID:      product.ID,
		Reason:         models.WarrantyReasonDefective,
		Description:    "same shoe, filed again",
		Status:         models.WarrantyStatusPending,
		WarrantyExpiry: claim.WarrantyExpiry,
	}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	// Only active claims occupy the index; once the first is rejected the
	// same (user, order, product) may be inserted again.
	require.NoError(t, db.Model(&models.WarrantyClaim{}).Where("id = ?", claim.ID).
		Update("status", models.WarrantyStatusRejected).Error)
	dup.ID = 0
	require.NoError(t, db.Create(&dup).Error)
}

func TestNewClaimAllowedAfterRejection(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)

	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	_, err = ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "reject", ReviewerID: "admin-1", RejectReason: "no defect found",
	})
	require.NoError(t, err)

	// The rejected claim is no longer active, so a new one may be filed.
	_, err = CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)
}

func TestProcessApprove(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)
	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	got, err := ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "approve", ReviewerID: "admin-1", AdminNote: "send to service center",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyStatusProcessing, got.Status)
	assert.Equal(t, models.WarrantyResultApproved, got.Result)
	assert.Equal(t, "admin-1", got.ActionBy)
	assert.Nil(t, got.ResolutionDate)
}

func TestProcessReplaceRequiresExistingOrder(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)
	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	_, err = ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "replace", ReviewerID: "admin-1",
	})
	requireAppCode(t, err, models.ErrCodeValidation)

	missing := uint(99999)
	_, err = ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "replace", ReviewerID: "admin-1", ReplacementOrderID: &missing,
	})
	requireAppCode(t, err, models.ErrCodeNotFound)

	// A real replacement order completes the claim.
	replacement := models.Order{UserID: testUserID, OrderNumber: "TEST-REPLACEMENT"}
	require.NoError(t, db.Create(&replacement).Error)

	got, err := ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "replace", ReviewerID: "admin-1", ReplacementOrderID: &replacement.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyStatusCompleted, got.Status)
	assert.Equal(t, models.WarrantyResultReplaced, got.Result)
	require.NotNil(t, got.ReplacementOrderID)
	assert.Equal(t, replacement.ID, *got.ReplacementOrderID)
	assert.NotNil(t, got.ResolutionDate)
}

func TestProcessRejectThenReprocessFails(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)
	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	// Reject requires a reason.
	_, err = ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "reject", ReviewerID: "admin-1",
	})
	requireAppCode(t, err, models.ErrCodeValidation)

	got, err := ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "reject", ReviewerID: "admin-1", RejectReason: "no defect found",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyStatusRejected, got.Status)
	assert.Equal(t, models.WarrantyResultRejected, got.Result)
	assert.Equal(t, "no defect found", got.RejectReason)
	assert.NotNil(t, got.ResolutionDate)

	// Processing is a one-shot transition out of pending.
	_, err = ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "approve", ReviewerID: "admin-1",
	})
	requireAppCode(t, err, models.ErrCodeInvalidTransition)
}

func TestProcessUnknownAction(t *testing.T) {
	db := newTestDB(t)
	product, order := seedDeliveredOrder(t, db, 12, 10)
	claim, err := CreateClaim(db, testUserID, claimReq(order.ID, product.ID))
	require.NoError(t, err)

	_, err = ProcessClaim(db, fmt.Sprint(claim.ID), ProcessClaimRequest{
		Action: "escalate", ReviewerID: "admin-1",
	})
	requireAppCode(t, err, models.ErrCodeValidation)
}
