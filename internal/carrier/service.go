package carrier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/pkg/db"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

const (
	testConnectionLimit  = 5
	testConnectionWindow = time.Minute
)

// Service manages the owner's carrier account.
type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*SettingsDTO, error)
	Upsert(ctx context.Context, ownerID uuid.UUID, input UpsertInput) (*SettingsDTO, error)
	Account(ctx context.Context, ownerID uuid.UUID) (*Account, error)
	TestConnection(ctx context.Context, ownerID uuid.UUID) (*TestResult, error)
}

type connectionTester interface {
	TestConnection(ctx context.Context, creds hfd.Credentials) error
}

type tokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ServiceParams groups dependencies for the carrier settings service.
type ServiceParams struct {
	Repo    Repository
	Sealer  tokenSealer
	Gateway connectionTester
	// Limiter throttles connection tests per owner. Optional.
	Limiter rateLimiter
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	sealer  tokenSealer
	gateway connectionTester
	limiter rateLimiter
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs a carrier settings service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("carrier settings repository required")
	}
	if params.Sealer == nil {
		return nil, fmt.Errorf("token sealer required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("carrier gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		sealer:  params.Sealer,
		gateway: params.Gateway,
		limiter: params.Limiter,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*SettingsDTO, error) {
	settings, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "carrier settings not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load carrier settings")
	}
	return newSettingsDTO(settings, s.openToken(ctx, settings)), nil
}

func (s *service) Upsert(ctx context.Context, ownerID uuid.UUID, input UpsertInput) (*SettingsDTO, error) {
	existing, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load carrier settings")
	}

	settings := &models.CarrierSettings{
		ClientNumber:     types.CleanField(input.ClientNumber),
		ShipmentTypeCode: types.CleanField(input.ShipmentTypeCode),
		CargoTypeCode:    types.CleanField(input.CargoTypeCode),
		SenderName:       optional(input.SenderName),
		SenderStreet:     optional(input.SenderStreet),
		SenderCity:       optional(input.SenderCity),
		SenderZip:        optional(input.SenderZip),
		SenderPhone:      optional(input.SenderPhone),
		IsActive:         true,
	}
	if existing != nil {
		settings.TokenCiphertext = existing.TokenCiphertext
		settings.IsActive = existing.IsActive
		settings.AutoDispatch = existing.AutoDispatch
	}
	if input.IsActive != nil {
		settings.IsActive = *input.IsActive
	}
	if input.AutoDispatch != nil {
		settings.AutoDispatch = *input.AutoDispatch
	}

	token := ""
	if input.Token != nil {
		token = strings.TrimSpace(*input.Token)
	}
	if token != "" {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal carrier token")
		}
		settings.TokenCiphertext = sealed
	}

	var missing []string
	if settings.ClientNumber == "" {
		missing = append(missing, "client_number")
	}
	if settings.TokenCiphertext == "" {
		missing = append(missing, "token")
	}
	if settings.ShipmentTypeCode == "" {
		missing = append(missing, "shipment_type_code")
	}
	if settings.CargoTypeCode == "" {
		missing = append(missing, "cargo_type_code")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier settings are incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}

	if err := s.repo.Upsert(ctx, ownerID, settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save carrier settings")
	}
	s.logg.Info(s.logg.WithUserID(ctx, ownerID.String()), "carrier.settings_saved")
	return s.Get(ctx, ownerID)
}

// Account resolves usable credentials. Any gap is a CONFIGURATION_ERROR so
// callers can fail before touching the network.
func (s *service) Account(ctx context.Context, ownerID uuid.UUID) (*Account, error) {
	settings, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "carrier settings are not configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load carrier settings")
	}
	if !settings.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "carrier integration is disabled")
	}

	token := ""
	if settings.TokenCiphertext != "" {
		token, err = s.sealer.Open(settings.TokenCiphertext)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "stored carrier token cannot be read; save the settings again")
		}
	}

	creds := hfd.Credentials{
		ClientNumber:     settings.ClientNumber,
		Token:            token,
		ShipmentTypeCode: settings.ShipmentTypeCode,
		CargoTypeCode:    settings.CargoTypeCode,
	}
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "carrier settings are incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}

	return &Account{
		Credentials: creds,
		Sender: hfd.Party{
			Name:   deref(settings.SenderName),
			Street: deref(settings.SenderStreet),
			City:   deref(settings.SenderCity),
			Zip:    deref(settings.SenderZip),
			Phone:  deref(settings.SenderPhone),
		},
		AutoDispatch: settings.AutoDispatch,
	}, nil
}

func (s *service) TestConnection(ctx context.Context, ownerID uuid.UUID) (*TestResult, error) {
	if s.limiter != nil {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "carrier-test:"+ownerID.String(), testConnectionLimit, testConnectionWindow)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "carrier.test_rate_limit_unavailable")
		} else if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many connection tests; try again in a minute")
		}
	}

	account, err := s.Account(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.TestConnection(ctx, account.Credentials); err != nil {
		return nil, err
	}
	return &TestResult{OK: true, CheckedAt: s.now().UTC()}, nil
}

func (s *service) openToken(ctx context.Context, settings *models.CarrierSettings) string {
	if settings.TokenCiphertext == "" {
		return ""
	}
	token, err := s.sealer.Open(settings.TokenCiphertext)
	if err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, settings.UserID.String()), "carrier.token_unreadable")
		return ""
	}
	return token
}

func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := types.CleanField(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
