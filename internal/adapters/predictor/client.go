// Package predictor is the HTTP client of the remote churn prediction service.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/churn/internal/domain/customer"
	"github.com/okian/churn/internal/domain/prediction"
	"github.com/okian/churn/pkg/logger"
	"github.com/okian/churn/pkg/metrics"
)

// Client defaults.
const (
	DefaultTimeout   = 5 * time.Second
	defaultUserAgent = "churn-frontend"
	maxBodyBytes     = 1 << 20
	requestIDHeader  = "X-Request-ID"
)

// Client posts customer records to the prediction endpoint. It performs
// exactly one request per call and never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     logger.Logger
}

// New creates a client for endpoint, which must be an absolute http(s) URL.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		endpoint:   u.String(),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		userAgent:  defaultUserAgent,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the URL predictions are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Predict sends rec and returns the service's answer.
//
// A non-200 status yields a *ServiceError carrying the body verbatim.
// Transport failures and timeouts wrap ErrUnavailable. A 200 whose body is
// not a valid Result wraps ErrInvalidResponse.
func (c *Client) Predict(ctx context.Context, rec customer.Record) (prediction.Result, error) {
	const op = "predictor.predict"

	payload, err := json.Marshal(rec)
	if err != nil {
		return prediction.Result{}, fmt.Errorf("%s: encode record: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return prediction.Result{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "prediction request failed",
			logger.String("endpoint", c.endpoint),
			logger.Error(err),
		)
		return prediction.Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.RecordUpstreamStatus(strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return prediction.Result{}, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn(ctx, "prediction service returned an error",
			logger.Int("status", resp.StatusCode),
			logger.Int("body_bytes", len(body)),
		)
		return prediction.Result{}, &ServiceError{StatusCode: resp.StatusCode, Body: body}
	}

	var res prediction.Result
	if err := decodeResult(body, &res); err != nil {
		return prediction.Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if err := res.Validate(); err != nil {
		return prediction.Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	c.logger.Debug(ctx, "prediction received",
		logger.Float64("churn_probability", res.ChurnProbability),
		logger.String("risk_level", res.RiskLevel),
	)
	return res, nil
}

// decodeResult requires both keys to be present, since a zero probability
// is a legitimate answer and cannot signal absence.
func decodeResult(body []byte, res *prediction.Result) error {
	var raw struct {
		ChurnProbability *float64 `json:"churn_probability"`
		RiskLevel        *string  `json:"risk_level"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if raw.ChurnProbability == nil {
		return errors.New("missing churn_probability")
	}
	if raw.RiskLevel == nil {
		return errors.New("missing risk_level")
	}
	res.ChurnProbability = *raw.ChurnProbability
	res.RiskLevel = *raw.RiskLevel
	return nil
}

type requestIDKey struct{}

// ContextWithRequestID attaches id so Predict forwards it as X-Request-ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
