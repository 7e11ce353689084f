package carrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk-backend/pkg/db/dbtest"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/security"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type stubGateway struct {
	calls []hfd.Credentials
	err   error
}

func (s *stubGateway) TestConnection(_ context.Context, creds hfd.Credentials) error {
	s.calls = append(s.calls, creds)
	return s.err
}

type stubLimiter struct {
	allowed bool
	err     error
	scopes  []string
}

func (s *stubLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, 1, s.err
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

type fixture struct {
	svc     Service
	repo    Repository
	gateway *stubGateway
	limiter *stubLimiter
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sealer, err := security.NewSealer(testKey)
	require.NoError(t, err)
	repo := NewRepository(dbtest.Open(t))
	gw := &stubGateway{}
	lim := &stubLimiter{allowed: true}
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Sealer:  sealer,
		Gateway: gw,
		Limiter: lim,
		Logger:  logger.Nop(),
		Now:     func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, gateway: gw, limiter: lim}
}

func validInput() UpsertInput {
	return UpsertInput{
		ClientNumber:     " 3399 ",
		Token:            strPtr("tok-abcdef123456"),
		ShipmentTypeCode: "35",
		CargoTypeCode:    "10",
		SenderName:       strPtr("Shop Ltd"),
		SenderCity:       strPtr("Haifa"),
		SenderPhone:      strPtr(""),
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestUpsertSealsTokenAndMasksIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	dto, err := f.svc.Upsert(ctx, owner, validInput())
	require.NoError(t, err)
	require.Equal(t, "3399", dto.ClientNumber)
	require.True(t, dto.HasToken)
	require.Equal(t, "****3456", dto.TokenHint)
	require.True(t, dto.IsActive)
	require.False(t, dto.AutoDispatch)
	require.Nil(t, dto.SenderPhone)

	stored, err := f.repo.FindByOwner(ctx, owner)
	require.NoError(t, err)
	require.NotContains(t, stored.TokenCiphertext, "tok-abcdef123456")
}

func TestUpsertKeepsTokenWhenBlank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	first, err := f.svc.Upsert(ctx, owner, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Token = strPtr("  ")
	in.ClientNumber = "4400"
	in.AutoDispatch = boolPtr(true)
	second, err := f.svc.Upsert(ctx, owner, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "4400", second.ClientNumber)
	require.True(t, second.AutoDispatch)

	account, err := f.svc.Account(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, "tok-abcdef123456", account.Credentials.Token)
	require.Equal(t, "4400", account.Credentials.ClientNumber)
	require.True(t, account.AutoDispatch)
	require.Equal(t, "Shop Ltd", account.Sender.Name)
	require.Equal(t, "Haifa", account.Sender.City)
}

func TestUpsertRequiresTokenOnFirstSave(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Token = nil
	in.CargoTypeCode = ""

	_, err := f.svc.Upsert(context.Background(), uuid.New(), in)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	require.Equal(t, map[string]any{"missing_fields": []string{"token", "cargo_type_code"}}, pkgerrors.As(err).Details())
}

func TestAccountConfigurationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := f.svc.Account(ctx, owner)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))

	in := validInput()
	in.IsActive = boolPtr(false)
	_, err = f.svc.Upsert(ctx, owner, in)
	require.NoError(t, err)

	_, err = f.svc.Account(ctx, owner)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))
	require.Equal(t, "carrier integration is disabled", pkgerrors.MessageOf(err))
}

func TestAccountRejectsUnreadableToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	_, err := f.svc.Upsert(ctx, owner, validInput())
	require.NoError(t, err)

	otherKey := "1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100"
	sealer, err := security.NewSealer(otherKey)
	require.NoError(t, err)
	other, err := NewService(ServiceParams{Repo: f.repo, Sealer: sealer, Gateway: f.gateway, Logger: logger.Nop()})
	require.NoError(t, err)

	_, err = other.Account(ctx, owner)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))

	dto, err := other.Get(ctx, owner)
	require.NoError(t, err)
	require.False(t, dto.HasToken)
}

func TestGetMissingSettings(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestTestConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	_, err := f.svc.Upsert(ctx, owner, validInput())
	require.NoError(t, err)

	res, err := f.svc.TestConnection(ctx, owner)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), res.CheckedAt)
	require.Len(t, f.gateway.calls, 1)
	require.Equal(t, "tok-abcdef123456", f.gateway.calls[0].Token)
	require.Equal(t, []string{"carrier-test:" + owner.String()}, f.limiter.scopes)

	f.gateway.err = pkgerrors.New(pkgerrors.CodeCarrier, "carrier rejected the credentials; check client number and token")
	_, err = f.svc.TestConnection(ctx, owner)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCarrier))
}

func TestTestConnectionRateLimited(t *testing.T) {
	f := newFixture(t)
	f.limiter.allowed = false

	_, err := f.svc.TestConnection(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRateLimit))
	require.Empty(t, f.gateway.calls)
}

func TestTestConnectionLimiterOutageIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	_, err := f.svc.Upsert(ctx, owner, validInput())
	require.NoError(t, err)
	f.limiter.allowed = false
	f.limiter.err = errors.New("redis down")

	_, err = f.svc.TestConnection(ctx, owner)
	require.NoError(t, err)
}
