package shipments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk-backend/internal/carrier"
	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/db/dbtest"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

type stubAccounts struct {
	err error
}

func (s stubAccounts) Account(context.Context, uuid.UUID) (*carrier.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &carrier.Account{Credentials: hfd.Credentials{ClientNumber: "1", Token: "t", ShipmentTypeCode: "35", CargoTypeCode: "10"}}, nil
}

type stubStatusGateway struct {
	status string
	calls  []string
}

func (s *stubStatusGateway) ShipmentStatus(_ context.Context, _ hfd.Credentials, number string) (*hfd.StatusResult, error) {
	s.calls = append(s.calls, number)
	return &hfd.StatusResult{ShipmentNumber: number, Status: s.status, Description: "desc"}, nil
}

func (s *stubStatusGateway) LabelURL(number string) string {
	return "https://labels.example/" + number
}

type fixture struct {
	svc     Service
	repo    Repository
	orders  orders.Repository
	gateway *stubStatusGateway
}

func newFixture(t *testing.T, accounts stubAccounts) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	gw := &stubStatusGateway{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Orders:   orderRepo,
		Accounts: accounts,
		Gateway:  gw,
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, orders: orderRepo, gateway: gw}
}

func (f fixture) seed(t *testing.T, owner uuid.UUID, orderStatus enums.OrderStatus) (*models.Order, *models.Shipment) {
	t.Helper()
	ctx := context.Background()
	order := &models.Order{OrderNumber: "1", Platform: enums.PlatformManual, Currency: "ILS", Status: orderStatus}
	require.NoError(t, f.orders.Create(ctx, owner, order))
	shipment := &models.Shipment{
		OrderID:           order.ID,
		HFDShipmentNumber: "55501",
		Status:            enums.ShipmentStatusSentToHFD,
		ShipmentData:      types.JSONMap{"shipment_number": "55501"},
	}
	require.NoError(t, f.repo.Create(ctx, owner, shipment))
	return order, shipment
}

func TestListForOrderIncludesLabel(t *testing.T) {
	f := newFixture(t, stubAccounts{})
	owner := uuid.New()
	order, _ := f.seed(t, owner, enums.OrderStatusShipped)

	list, err := f.svc.ListForOrder(context.Background(), owner, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "https://labels.example/55501", list[0].LabelURL)

	others, err := f.svc.ListForOrder(context.Background(), uuid.New(), order.ID)
	require.NoError(t, err)
	require.Empty(t, others)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t, stubAccounts{})
	owner := uuid.New()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.repo.Create(ctx, owner, &models.Shipment{
			OrderID:           uuid.New(),
			HFDShipmentNumber: "n",
			Status:            enums.ShipmentStatusSentToHFD,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := f.svc.List(ctx, owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Shipments, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.List(ctx, owner, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Shipments, 1)
	require.Empty(t, rest.NextCursor)
}

func TestRefreshDeliveredMarksOrderDelivered(t *testing.T) {
	f := newFixture(t, stubAccounts{})
	owner := uuid.New()
	ctx := context.Background()
	order, shipment := f.seed(t, owner, enums.OrderStatusShipped)
	f.gateway.status = "Delivered"

	dto, err := f.svc.Refresh(ctx, owner, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShipmentStatusDelivered, dto.Status)
	require.Equal(t, []string{"55501"}, f.gateway.calls)

	stored, err := f.repo.Get(ctx, owner, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShipmentStatusDelivered, stored.Status)
	require.Equal(t, "55501", stored.ShipmentData.String("shipment_number"))
	require.Equal(t, "Delivered", stored.ShipmentData.String("last_status.status"))

	got, err := f.orders.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, got.Status)

	logs, err := f.orders.ListLogs(ctx, owner, order.ID)
	require.NoError(t, err)
	kinds := []enums.ActivityType{}
	for _, l := range logs {
		kinds = append(kinds, l.ActivityType)
	}
	require.ElementsMatch(t, []enums.ActivityType{enums.ActivityShipmentStatusUpdated, enums.ActivityStatusUpdated}, kinds)
}

func TestRefreshUnchangedStatusWritesNothing(t *testing.T) {
	f := newFixture(t, stubAccounts{})
	owner := uuid.New()
	ctx := context.Background()
	order, shipment := f.seed(t, owner, enums.OrderStatusShipped)
	f.gateway.status = "awaiting courier"

	dto, err := f.svc.Refresh(ctx, owner, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShipmentStatusSentToHFD, dto.Status)

	logs, err := f.orders.ListLogs(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestRefreshDeliveredLeavesNonShippedOrder(t *testing.T) {
	f := newFixture(t, stubAccounts{})
	owner := uuid.New()
	ctx := context.Background()
	order, shipment := f.seed(t, owner, enums.OrderStatusError)
	f.gateway.status = "delivered"

	_, err := f.svc.Refresh(ctx, owner, shipment.ID)
	require.NoError(t, err)

	got, err := f.orders.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusError, got.Status)
}

func TestRefreshErrors(t *testing.T) {
	f := newFixture(t, stubAccounts{err: pkgerrors.New(pkgerrors.CodeConfiguration, "carrier settings are not configured")})
	owner := uuid.New()
	_, shipment := f.seed(t, owner, enums.OrderStatusShipped)

	_, err := f.svc.Refresh(context.Background(), owner, shipment.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))
	require.Empty(t, f.gateway.calls)

	_, err = f.svc.Refresh(context.Background(), uuid.New(), shipment.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestMapCarrierStatus(t *testing.T) {
	cases := map[string]enums.ShipmentStatus{
		"":                   enums.ShipmentStatusSentToHFD,
		"in_transit":         enums.ShipmentStatusInTransit,
		"Out for delivery":   enums.ShipmentStatusSentToHFD,
		"OUT_FOR_DELIVERY":   enums.ShipmentStatusInTransit,
		"Delivered":          enums.ShipmentStatusDelivered,
		"Undelivered":        enums.ShipmentStatusFailed,
		"Returned to sender": enums.ShipmentStatusFailed,
		"נמסר":               enums.ShipmentStatusDelivered,
		"Picked up":          enums.ShipmentStatusInTransit,
		"???":                enums.ShipmentStatusSentToHFD,
	}
	for raw, want := range cases {
		require.Equal(t, want, mapCarrierStatus(raw, enums.ShipmentStatusSentToHFD), raw)
	}
}

func TestListInFlightSpansOwnersAndSkipsTerminal(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	lister := NewInFlightLister(conn)
	ctx := context.Background()
	stale := time.Now().Add(-2 * time.Hour)

	seed := func(owner uuid.UUID, status enums.ShipmentStatus, updated time.Time) uuid.UUID {
		row := &models.Shipment{
			OrderID:           uuid.New(),
			HFDShipmentNumber: "n",
			Status:            status,
			CreatedAt:         updated,
			UpdatedAt:         updated,
		}
		require.NoError(t, repo.Create(ctx, owner, row))
		return row.ID
	}
	a := seed(uuid.New(), enums.ShipmentStatusSentToHFD, stale)
	b := seed(uuid.New(), enums.ShipmentStatusInTransit, stale)
	seed(uuid.New(), enums.ShipmentStatusDelivered, stale)
	seed(uuid.New(), enums.ShipmentStatusFailed, stale)
	seed(uuid.New(), enums.ShipmentStatusCreated, time.Now().Add(time.Hour))

	cutoff := time.Now().Add(-time.Hour)
	first, err := lister.ListInFlight(ctx, cutoff, uuid.Nil, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := lister.ListInFlight(ctx, cutoff, first[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, second, 1)

	require.ElementsMatch(t, []uuid.UUID{a, b}, []uuid.UUID{first[0].ID, second[0].ID})
}

func TestRefreshLeavesTerminalShipmentsAlone(t *testing.T) {
	for _, final := range []enums.ShipmentStatus{enums.ShipmentStatusDelivered, enums.ShipmentStatusFailed} {
		f := newFixture(t, stubAccounts{})
		owner := uuid.New()
		ctx := context.Background()
		order, shipment := f.seed(t, owner, enums.OrderStatusDelivered)
		require.NoError(t, f.repo.UpdateStatus(ctx, owner, shipment.ID, final, shipment.ShipmentData))
		f.gateway.status = "in transit"

		dto, err := f.svc.Refresh(ctx, owner, shipment.ID)
		require.NoError(t, err)
		require.Equal(t, final, dto.Status, final.String())
		require.Empty(t, f.gateway.calls)

		stored, err := f.repo.Get(ctx, owner, shipment.ID)
		require.NoError(t, err)
		require.Equal(t, final, stored.Status)

		logs, err := f.orders.ListLogs(ctx, owner, order.ID)
		require.NoError(t, err)
		require.Empty(t, logs)
	}
	require.Equal(t, enums.ShipmentStatusDelivered, mapCarrierStatus("Returned to sender", enums.ShipmentStatusDelivered))
	require.Equal(t, enums.ShipmentStatusFailed, mapCarrierStatus("sent", enums.ShipmentStatusFailed))
}
