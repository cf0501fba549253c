package repositories

import (
	"context"
	"fmt"
	"storefront/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{},
		&models.StatusHistoryEntry{}, &models.Coupon{}, &models.ReturnRequest{},
	))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestGORMCouponRepository_ConsumeStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMCouponRepository(setupDB(t))
	coupon := &models.Coupon{
		Code:       "SAVE10",
		Discount:   10,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
		UsageLimit: 2,
		Status:     models.CouponStatusActive,
	}
	require.NoError(t, repo.Create(ctx, coupon))

	require.NoError(t, repo.Consume(ctx, coupon.ID))
	require.NoError(t, repo.Consume(ctx, coupon.ID))
	assert.ErrorIs(t, repo.Consume(ctx, coupon.ID), ErrLimitReached)

	stored, err := repo.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsedCount)
	assert.Equal(t, models.CouponStatusActive, stored.Status)

	require.NoError(t, repo.Release(ctx, coupon.ID))
	stored, err = repo.GetByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)

	assert.ErrorIs(t, repo.Consume(ctx, "missing"), ErrNotFound)
}

func TestGORMCouponRepository_DuplicateCodeAndSweep(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMCouponRepository(setupDB(t))
	now := time.Now()

	old := &models.Coupon{Code: "OLD", ValidFrom: now.Add(-48 * time.Hour), ValidUntil: now.Add(-24 * time.Hour), UsageLimit: 5, Status: models.CouponStatusActive}
	spent := &models.Coupon{Code: "SPENT", ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), UsageLimit: 1, UsedCount: 1, Status: models.CouponStatusActive}
	live := &models.Coupon{Code: "LIVE", ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), UsageLimit: 1, Status: models.CouponStatusActive}
	for _, c := range []*models.Coupon{old, spent, live} {
		require.NoError(t, repo.Create(ctx, c))
	}
	assert.ErrorIs(t, repo.Create(ctx, &models.Coupon{Code: "LIVE", UsageLimit: 1}), ErrDuplicate)

	swept, err := repo.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), swept)

	got, _ := repo.GetByCode(ctx, "OLD")
	assert.Equal(t, models.CouponStatusExpired, got.Status)
	got, _ = repo.GetByCode(ctx, "SPENT")
	assert.Equal(t, models.CouponStatusUsed, got.Status)
	got, _ = repo.GetByCode(ctx, "LIVE")
	assert.Equal(t, models.CouponStatusActive, got.Status)
}

func TestGORMOrderRepository_AppendStatusIsVersioned(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMOrderRepository(setupDB(t))
	created := time.Now().UTC().Truncate(time.Second)
	order := &models.Order{
		UserID:      "user-1",
		OrderItems:  []models.OrderItem{{ProductID: "p1", Name: "Shirt", Quantity: 2, Price: 500}},
		PaymentInfo: models.PaymentInfo{Method: models.PaymentMethodCOD, Status: models.PaymentStatusPending},
		Status:      models.OrderStatusPending,
		StatusHistory: []models.StatusHistoryEntry{
			{Status: models.OrderStatusPending, Timestamp: created, UpdatedBy: "user-1"},
		},
		TotalPrice: 1150,
	}
	require.NoError(t, repo.Create(ctx, order))
	assert.Equal(t, 1, order.Version)

	entry := models.StatusHistoryEntry{Status: models.OrderStatusConfirmed, Timestamp: created.Add(time.Minute), UpdatedBy: "admin"}
	require.NoError(t, repo.AppendStatus(ctx, order.ID, 1, entry))
	assert.ErrorIs(t, repo.AppendStatus(ctx, order.ID, 1, entry), ErrStaleWrite)
	assert.ErrorIs(t, repo.AppendStatus(ctx, "missing", 1, entry), ErrNotFound)

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, 2, stored.Version)
	require.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, models.OrderStatusPending, stored.StatusHistory[0].Status)
	assert.Equal(t, models.OrderStatusConfirmed, stored.StatusHistory[1].Status)
	require.Len(t, stored.OrderItems, 1)
	assert.Equal(t, "Shirt", stored.OrderItems[0].Name)

	require.NoError(t, repo.UpdatePaymentStatus(ctx, order.ID, 2, models.PaymentStatusPaid))
	stored, err = repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentInfo.Status)
	assert.Equal(t, 3, stored.Version)

	mine, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	others, err := repo.ListByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestGORMReturnRepository_UniquePerOrderLine(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMReturnRepository(setupDB(t))

	first := &models.ReturnRequest{UserID: "u1", OrderID: "o1", ProductID: "p1", Reason: "too small", Status: models.ReturnStatusPending}
	require.NoError(t, repo.Create(ctx, first))

	dup := &models.ReturnRequest{UserID: "u1", OrderID: "o1", ProductID: "p1", Reason: "again", Status: models.ReturnStatusPending}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)

	other := &models.ReturnRequest{UserID: "u1", OrderID: "o1", ProductID: "p2", Reason: "wrong color", Status: models.ReturnStatusPending}
	require.NoError(t, repo.Create(ctx, other))

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, models.ReturnStatusPending, models.ReturnStatusApproved))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, first.ID, models.ReturnStatusPending, models.ReturnStatusRejected), ErrStaleWrite)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", models.ReturnStatusPending, models.ReturnStatusRejected), ErrNotFound)

	require.NoError(t, repo.MarkReceived(ctx, first.ID))
	require.NoError(t, repo.MarkReceived(ctx, first.ID))
	assert.ErrorIs(t, repo.MarkReceived(ctx, "missing"), ErrNotFound)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusApproved, stored.Status)
	assert.True(t, stored.Received)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGORMUserRepository_SubscriptionAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMUserRepository(setupDB(t))

	user := &models.User{Username: "asha", Email: "asha@example.com", Password: "hashed", Role: models.RoleCustomer}
	require.NoError(t, repo.Create(ctx, user))
	assert.ErrorIs(t, repo.Create(ctx, &models.User{Username: "asha", Email: "other@example.com", Password: "x"}), ErrDuplicate)

	expiry := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateSubscription(ctx, user.ID, models.Subscription{IsSubscribed: true, SubscriptionExpiry: &expiry, SubscriptionCost: 199}))

	got, err := repo.GetByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.True(t, got.Subscription.IsSubscribed)
	assert.Equal(t, 199.0, got.Subscription.SubscriptionCost)
	require.NotNil(t, got.Subscription.SubscriptionExpiry)
	assert.True(t, got.Subscription.SubscriptionExpiry.Equal(expiry))

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := repo.GetByIDs(ctx, []string{user.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
