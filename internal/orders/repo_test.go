package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shipdesk/shipdesk-backend/pkg/db/dbtest"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

func strPtr(v string) *string { return &v }

func seedOrder(t *testing.T, repo Repository, ownerID uuid.UUID, number string, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:  number,
		Platform:     enums.PlatformManual,
		CustomerName: strPtr("Dana Levi"),
		Currency:     "ILS",
		Status:       status,
		ShippingAddress: types.Address{
			Street: "Herzl 1",
			City:   "Tel Aviv",
		},
		TotalAmount: decimal.NewNullDecimal(decimal.RequireFromString("99.90")),
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), ownerID, order))
	return order
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner := uuid.New()

	order := seedOrder(t, repo, owner, "1001", enums.OrderStatusPending, time.Now().UTC())
	require.NotEqual(t, uuid.Nil, order.ID)
	require.Equal(t, owner, order.UserID)
	require.False(t, order.OrderDate.IsZero())

	got, err := repo.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1001", got.OrderNumber)
	assert.Equal(t, "Tel Aviv", got.ShippingAddress.City)
	assert.True(t, got.TotalAmount.Valid)
	assert.True(t, decimal.RequireFromString("99.90").Equal(got.TotalAmount.Decimal))
}

func TestRepositoryIsOwnerScoped(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()
	order := seedOrder(t, repo, owner, "1001", enums.OrderStatusPending, time.Now().UTC())

	_, err := repo.Get(ctx, stranger, order.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.ErrorIs(t, repo.UpdateStatus(ctx, stranger, order.ID, enums.OrderStatusShipped), gorm.ErrRecordNotFound)
	require.ErrorIs(t, repo.SoftDelete(ctx, stranger, order.ID, stranger), gorm.ErrRecordNotFound)

	rows, err := repo.ListByIDs(ctx, stranger, []uuid.UUID{order.ID})
	require.NoError(t, err)
	require.Empty(t, rows)

	got, err := repo.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, got.Status)
}

func TestRepositorySoftDeleteAndRestore(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner := uuid.New()
	order := seedOrder(t, repo, owner, "1001", enums.OrderStatusProcessed, time.Now().UTC())

	require.NoError(t, repo.SoftDelete(ctx, owner, order.ID, owner))
	require.ErrorIs(t, repo.SoftDelete(ctx, owner, order.ID, owner), gorm.ErrRecordNotFound)

	_, err := repo.Get(ctx, owner, order.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	active, err := repo.List(ctx, owner, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, active)

	deleted, err := repo.ListDeleted(ctx, owner)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.NotNil(t, deleted[0].DeletedBy)
	require.Equal(t, owner, *deleted[0].DeletedBy)

	require.ErrorIs(t, repo.UpdateStatus(ctx, owner, order.ID, enums.OrderStatusShipped), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Restore(ctx, owner, order.ID))
	require.ErrorIs(t, repo.Restore(ctx, owner, order.ID), gorm.ErrRecordNotFound)

	got, err := repo.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Nil(t, got.DeletedAt)
	require.Equal(t, enums.OrderStatusProcessed, got.Status)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	first := seedOrder(t, repo, owner, "A-1", enums.OrderStatusPending, base)
	second := seedOrder(t, repo, owner, "A-2", enums.OrderStatusShipped, base.Add(time.Minute))
	third := seedOrder(t, repo, owner, "B-3", enums.OrderStatusPending, base.Add(2*time.Minute))
	seedOrder(t, repo, uuid.New(), "A-9", enums.OrderStatusPending, base)

	rows, err := repo.List(ctx, owner, ListFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 3, "list fetches one extra row to detect the next page")

	page, next := pagination.Trim(rows, 2, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	require.Equal(t, []uuid.UUID{third.ID, second.ID}, []uuid.UUID{page[0].ID, page[1].ID})
	require.NotEmpty(t, next)

	rows, err = repo.List(ctx, owner, ListFilters{}, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, first.ID, rows[0].ID)

	pending := enums.OrderStatusPending
	rows, err = repo.List(ctx, owner, ListFilters{Status: &pending}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.List(ctx, owner, ListFilters{Query: "a-"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.List(ctx, owner, ListFilters{Query: "DANA"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	rows, err = repo.List(ctx, owner, ListFilters{Query: "%"}, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepositoryCountByStatus(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner := uuid.New()
	now := time.Now().UTC()

	seedOrder(t, repo, owner, "1", enums.OrderStatusPending, now)
	seedOrder(t, repo, owner, "2", enums.OrderStatusPending, now)
	deleted := seedOrder(t, repo, owner, "3", enums.OrderStatusError, now)
	seedOrder(t, repo, owner, "4", enums.OrderStatusShipped, now)
	require.NoError(t, repo.SoftDelete(ctx, owner, deleted.ID, owner))

	counts, err := repo.CountByStatus(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[enums.OrderStatusPending])
	require.Equal(t, int64(1), counts[enums.OrderStatusShipped])
	require.Zero(t, counts[enums.OrderStatusError])
}

func TestRepositoryFindByExternalIDIncludesDeleted(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner := uuid.New()

	order := &models.Order{
		ExternalID:  strPtr("wix-77"),
		OrderNumber: "77",
		Platform:    enums.PlatformWix,
		Currency:    "ILS",
		Status:      enums.OrderStatusPending,
	}
	require.NoError(t, repo.Create(ctx, owner, order))
	require.NoError(t, repo.SoftDelete(ctx, owner, order.ID, owner))

	found, err := repo.FindByExternalID(ctx, owner, enums.PlatformWix, "wix-77")
	require.NoError(t, err)
	require.Equal(t, order.ID, found.ID)

	_, err = repo.FindByExternalID(ctx, owner, enums.PlatformShopify, "wix-77")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryLogs(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	owner := uuid.New()
	order := seedOrder(t, repo, owner, "1", enums.OrderStatusPending, time.Now().UTC())

	require.NoError(t, repo.AppendLog(ctx, owner, &models.OrderLog{
		OrderID:      order.ID,
		ActivityType: enums.ActivityStatusUpdated,
		Details:      types.JSONMap{"new_status": "processed"},
	}))

	logs, err := repo.ListLogs(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, owner, logs[0].UserID)
	require.Equal(t, "processed", logs[0].Details.String("new_status"))

	others, err := repo.ListLogs(ctx, uuid.New(), order.ID)
	require.NoError(t, err)
	require.Empty(t, others)
}
