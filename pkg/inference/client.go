package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/threadline-ai/threadline-backend/pkg/config"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/metrics"
)

// Service is the inference collaborator surface the pipeline depends on.
type Service interface {
	GenerateBOM(ctx context.Context, req BOMRequest) (*BOMResult, error)
	GenerateMarketForecast(ctx context.Context, req ForecastRequest) (*ForecastResult, error)
	GeneratePriceForecast(ctx context.Context, req PriceForecastRequest) (*PriceForecastResult, error)
	GenerateSuppliers(ctx context.Context, req SupplierRequest) (*SupplierResult, error)
	Health(ctx context.Context) bool
}

type client struct {
	baseURL string
	apiKey  string
	cfg     config.InferenceConfig
	http    *http.Client
	logg    *logger.Logger
	stats   *metrics.CollaboratorMetrics
}

// NewClient builds the HTTP inference client. The metrics argument may be nil.
func NewClient(cfg config.InferenceConfig, logg *logger.Logger, stats *metrics.CollaboratorMetrics) (Service, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("inference base url is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		cfg:     cfg,
		http:    &http.Client{},
		logg:    logg,
		stats:   stats,
	}, nil
}

func (c *client) GenerateBOM(ctx context.Context, req BOMRequest) (*BOMResult, error) {
	if len(req.Images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	var result BOMResult
	if err := c.call(ctx, "generate_bom", "/api/v1/ai/generate-bom", c.cfg.BOMTimeout, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) GenerateMarketForecast(ctx context.Context, req ForecastRequest) (*ForecastResult, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "generate_market_forecast", "/api/v1/ai/generate-market-forecast", c.cfg.ForecastTimeout, req, &raw); err != nil {
		return nil, err
	}
	return decodeForecastEnvelope(raw)
}

func (c *client) GeneratePriceForecast(ctx context.Context, req PriceForecastRequest) (*PriceForecastResult, error) {
	var result PriceForecastResult
	if err := c.call(ctx, "generate_price_forecast", "/api/v1/ai/generate-price-forecast", c.cfg.SupplierTimeout, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) GenerateSuppliers(ctx context.Context, req SupplierRequest) (*SupplierResult, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "generate_suppliers", "/api/v1/ai/generate-suppliers", c.cfg.SupplierTimeout, req, &raw); err != nil {
		return nil, err
	}
	return decodeSupplierEnvelope(raw)
}

func (c *client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// call posts a JSON body and decodes the response, retrying transient faults
// with fibonacci backoff inside the per-call deadline. 4xx responses are
// never retried.
func (c *client) call(ctx context.Context, operation, path string, timeout time.Duration, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request")
	}

	backoff := retry.NewFibonacci(250 * time.Millisecond)
	backoff = retry.WithCappedDuration(5*time.Second, backoff)
	backoff = retry.WithMaxRetries(uint64(c.cfg.MaxRetries), backoff)

	started := time.Now()
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.doOnce(ctx, path, payload, out)
	})
	c.stats.ObserveCall(operation, time.Since(started))

	if err == nil {
		return nil
	}
	lctx := c.logg.WithField(ctx, "operation", operation)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.stats.IncError(operation, "timeout")
		c.logg.Error(lctx, "inference call timed out", err)
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, fmt.Sprintf("%s timed out", operation))
	}
	c.stats.IncError(operation, "error")
	c.logg.Error(lctx, "inference call failed", err)
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeCollaborator, err, fmt.Sprintf("%s failed", operation))
}

func (c *client) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.RetryableError(err)
	}

	switch {
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("inference service returned %d: %s", resp.StatusCode, truncate(data)))
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeCollaborator, fmt.Sprintf("inference service rejected request (%d): %s", resp.StatusCode, truncate(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCollaborator, err, "decoding inference response")
	}
	return nil
}

// decodeForecastEnvelope accepts both {data:{forecasts}} and {forecasts}.
func decodeForecastEnvelope(raw json.RawMessage) (*ForecastResult, error) {
	var wrapped struct {
		Data *ForecastResult `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil && wrapped.Data.Forecasts != nil {
		return wrapped.Data, nil
	}
	var flat ForecastResult
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCollaborator, err, "decoding forecast response")
	}
	if flat.Forecasts == nil {
		flat.Forecasts = []ForecastMarket{}
	}
	return &flat, nil
}

// decodeSupplierEnvelope accepts both {data:{suppliers}} and {suppliers}.
func decodeSupplierEnvelope(raw json.RawMessage) (*SupplierResult, error) {
	var wrapped struct {
		Data *SupplierResult `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil && wrapped.Data.Suppliers != nil {
		return wrapped.Data, nil
	}
	var flat SupplierResult
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCollaborator, err, "decoding supplier response")
	}
	if flat.Suppliers == nil {
		flat.Suppliers = []SupplierCandidate{}
	}
	return &flat, nil
}

func truncate(data []byte) string {
	const max = 256
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
