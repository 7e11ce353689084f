// Package hfd is the gateway to the HFD carrier REST API. It owns the
// wire format, the retry policy applied to every call and the folding of
// the carrier's inconsistent response casing into one result type.
package hfd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/retry"
)

const (
	DefaultBaseURL      = "https://test.hfd.co.il/RunCom.WebAPI/api/v1"
	DefaultLabelBaseURL = "https://test.hfd.co.il/RunCom.Server/Request.aspx"
	defaultTimeout      = 30 * time.Second
	responseReadLimit   = 1 << 20

	EndpointShipments = "shipments"
	EndpointStatus    = "shipments/status"
	EndpointTest      = "test"
)

// Observer receives one callback per HTTP attempt. pkg/metrics implements it.
type Observer interface {
	ObserveCarrierCall(endpoint, outcome string, elapsed time.Duration)
}

// Client talks to the carrier.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	labelBaseURL string
	timeout      time.Duration
	policy       retry.Policy
	observer     Observer
	logg         *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithLabelBaseURL overrides the printable label endpoint.
func WithLabelBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.labelBaseURL = trimmed
		}
	}
}

// WithTimeout bounds each attempt, not the whole retried call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryPolicy replaces the default backoff. The retryable predicate is
// always owned by the client.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithObserver attaches per-attempt instrumentation.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger enables retry warnings.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.logg = l
	}
}

// NewClient builds the carrier client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient:   &http.Client{},
		baseURL:      DefaultBaseURL,
		labelBaseURL: DefaultLabelBaseURL,
		timeout:      defaultTimeout,
		policy:       retry.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	client.policy = client.policy.WithRetryable(isRetryable)
	return client
}

// CreateShipment registers a parcel with the carrier. Transient failures
// are retried; a response without a shipment number is an error.
func (c *Client) CreateShipment(ctx context.Context, creds Credentials, req ShipmentRequest) (*ShipmentResult, error) {
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "carrier credentials are incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}
	if req.Pieces <= 0 {
		req.Pieces = 1
	}

	raw, err := c.call(ctx, EndpointShipments, newWirePayload(creds, req))
	if err != nil {
		return nil, err
	}

	result := normalizeShipment(raw)
	if result.ShipmentNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeCarrier, "carrier did not return a shipment number").
			WithDetails(map[string]any{"endpoint": EndpointShipments})
	}
	return &result, nil
}

// ShipmentStatus looks up the carrier-side status of a shipment.
func (c *Client) ShipmentStatus(ctx context.Context, creds Credentials, shipmentNumber string) (*StatusResult, error) {
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "carrier credentials are incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}
	shipmentNumber = strings.TrimSpace(shipmentNumber)
	if shipmentNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment number is required")
	}

	raw, err := c.call(ctx, EndpointStatus, wirePayload{
		ClientNumber:   creds.ClientNumber,
		Token:          creds.Token,
		ShipmentNumber: shipmentNumber,
	})
	if err != nil {
		return nil, err
	}
	result := normalizeStatus(raw, shipmentNumber)
	return &result, nil
}

// TestConnection verifies credentials with a single lightweight call.
func (c *Client) TestConnection(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.ClientNumber) == "" || strings.TrimSpace(creds.Token) == "" {
		return pkgerrors.New(pkgerrors.CodeConfiguration, "carrier client number and token are required")
	}
	_, err := c.call(ctx, EndpointTest, wirePayload{ClientNumber: creds.ClientNumber, Token: creds.Token})
	return err
}

// LabelURL returns the printable label link for a shipment number.
func (c *Client) LabelURL(shipmentNumber string) string {
	shipmentNumber = strings.TrimSpace(shipmentNumber)
	if shipmentNumber == "" {
		return ""
	}
	q := url.Values{}
	q.Set("APPNAME", "run")
	q.Set("PRGNAME", "ship_print_ws")
	q.Set("ARGUMENTS", fmt.Sprintf("-N%s,-A,-A,-A,-A,-A,-A,-N,-A", shipmentNumber))
	return c.labelBaseURL + "?" + q.Encode()
}

func (c *Client) call(ctx context.Context, endpoint string, payload wirePayload) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal carrier payload")
	}

	var raw map[string]any
	attempts := 0
	policy := c.policy
	policy.OnRetry = func(attempt int, err error) {
		if c.logg != nil {
			rctx := c.logg.WithFields(ctx, map[string]any{"endpoint": endpoint, "attempt": attempt, "error": err.Error()})
			c.logg.Warn(rctx, "carrier.retry")
		}
	}

	err = policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		out, attemptErr := c.attempt(ctx, endpoint, payload.Token, body)
		if attemptErr != nil {
			return attemptErr
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, toCarrierError(endpoint, attempts, err)
	}
	return raw, nil
}

func (c *Client) attempt(parent context.Context, endpoint, token string, body []byte) (raw map[string]any, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveCarrierCall(endpoint, outcomeOf(err), time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, &attemptError{message: "build carrier request", cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportFailure(parent, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return nil, transportFailure(parent, err)
	}
	decoded := decodeBody(payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusFailure(resp.StatusCode, decoded)
	}
	if code, message, failed := carrierFault(decoded); failed {
		return nil, &attemptError{status: resp.StatusCode, code: code, message: describeFault(code, message)}
	}
	return decoded, nil
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	if isRetryable(err) {
		return "transient_error"
	}
	return "rejected"
}
