// Package service provides the prediction use case shared by the HTML form,
// the JSON API and the CLI.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/churn/internal/adapters/predictor"
	"github.com/okian/churn/internal/domain/customer"
	"github.com/okian/churn/internal/domain/prediction"
	"github.com/okian/churn/pkg/logger"
	"github.com/okian/churn/pkg/metrics"
)

// Predictor calls the remote prediction service once for a record.
type Predictor interface {
	Predict(ctx context.Context, rec customer.Record) (prediction.Result, error)
}

// OutcomeKind classifies a submission.
type OutcomeKind string

// Outcome kinds.
const (
	KindSuccess         OutcomeKind = "success"
	KindInvalidInput    OutcomeKind = "invalid_input"
	KindServiceError    OutcomeKind = "service_error"
	KindUnavailable     OutcomeKind = "unavailable"
	KindInvalidResponse OutcomeKind = "invalid_response"
	KindInternal        OutcomeKind = "internal_error"
)

// Headlines shown for failed outcomes.
const (
	MsgInvalidInput    = "Please correct the highlighted fields."
	MsgServiceError    = "Prediction service returned an error."
	MsgUnavailable     = "Could not connect to prediction API."
	MsgInvalidResponse = "Prediction service returned an unexpected response."
	MsgInternal        = "Something went wrong while predicting churn."
)

// Message returns the headline for k, empty for KindSuccess.
func (k OutcomeKind) Message() string {
	switch k {
	case KindSuccess:
		return ""
	case KindInvalidInput:
		return MsgInvalidInput
	case KindServiceError:
		return MsgServiceError
	case KindUnavailable:
		return MsgUnavailable
	case KindInvalidResponse:
		return MsgInvalidResponse
	default:
		return MsgInternal
	}
}

var allKinds = []OutcomeKind{
	KindSuccess, KindInvalidInput, KindServiceError,
	KindUnavailable, KindInvalidResponse, KindInternal,
}

// Outcome is everything known about one submission.
type Outcome struct {
	RequestID  string
	Record     customer.Record
	Result     prediction.Result
	Assessment prediction.Assessment
	Err        error
	Latency    time.Duration
}

// Kind classifies the outcome from its error.
func (o Outcome) Kind() OutcomeKind {
	return classify(o.Err)
}

// FieldErrors returns the per-field problems of an invalid_input outcome.
func (o Outcome) FieldErrors() customer.FieldErrors {
	var fe customer.FieldErrors
	if errors.As(o.Err, &fe) {
		return fe
	}
	return nil
}

// ServiceError returns the service answer of a service_error outcome.
func (o Outcome) ServiceError() *predictor.ServiceError {
	var se *predictor.ServiceError
	if errors.As(o.Err, &se) {
		return se
	}
	return nil
}

func classify(err error) OutcomeKind {
	switch {
	case err == nil:
		return KindSuccess
	case errors.Is(err, customer.ErrInvalidRecord):
		return KindInvalidInput
	case errors.Is(err, predictor.ErrServiceError):
		return KindServiceError
	case errors.Is(err, predictor.ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, predictor.ErrInvalidResponse):
		return KindInvalidResponse
	default:
		return KindInternal
	}
}

// Service runs predictions and keeps counters for /stats.
type Service struct {
	predictor Predictor
	threshold float64
	logger    logger.Logger

	mu          sync.Mutex
	counts      map[OutcomeKind]int
	total       int
	lastLatency time.Duration
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHighRiskThreshold sets the probability above which customers are high risk.
func WithHighRiskThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 && threshold < 1 {
			s.threshold = threshold
		}
	}
}

// New constructs a Service around p.
func New(p Predictor, opts ...Option) *Service {
	s := &Service{
		predictor: p,
		threshold: prediction.DefaultHighRiskThreshold,
		logger:    logger.Nop(),
		counts:    make(map[OutcomeKind]int, len(allKinds)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the high risk threshold in use.
func (s *Service) Threshold() float64 { return s.threshold }

// Predict validates rec, calls the prediction service once and assesses the
// answer. Failures are reported in Outcome.Err, never retried.
func (s *Service) Predict(ctx context.Context, rec customer.Record) Outcome {
	out := Outcome{RequestID: uuid.NewString(), Record: rec}

	if err := rec.Validate(); err != nil {
		out.Err = err
		s.finish(ctx, &out)
		return out
	}

	ctx = predictor.ContextWithRequestID(ctx, out.RequestID)
	start := time.Now()
	res, err := s.predictor.Predict(ctx, rec)
	out.Latency = time.Since(start)
	if err != nil {
		out.Err = err
		s.finish(ctx, &out)
		return out
	}

	out.Result = res
	out.Assessment = prediction.Assess(res, s.threshold)
	s.finish(ctx, &out)
	return out
}

// Reject accounts for a submission that failed before a Record could be
// built, e.g. an unparsable form. It returns the matching outcome.
func (s *Service) Reject(ctx context.Context, rec customer.Record, err error) Outcome {
	out := Outcome{RequestID: uuid.NewString(), Record: rec, Err: err}
	s.finish(ctx, &out)
	return out
}

func (s *Service) finish(ctx context.Context, out *Outcome) {
	kind := out.Kind()
	latencyMs := float64(out.Latency.Microseconds()) / 1000

	s.mu.Lock()
	s.counts[kind]++
	s.total++
	if kind != KindInvalidInput {
		s.lastLatency = out.Latency
	}
	s.mu.Unlock()

	metrics.RecordPrediction(string(kind), latencyMs)

	fields := []logger.Field{
		logger.String("request_id", out.RequestID),
		logger.String("outcome", string(kind)),
		logger.Float64("latency_ms", latencyMs),
	}
	switch kind {
	case KindSuccess:
		metrics.RecordResult(out.Result.ChurnProbability, out.Result.RiskLevel, out.Assessment.HighRisk)
		s.logger.Info(ctx, "prediction served", append(fields,
			logger.Float64("churn_probability", out.Result.ChurnProbability),
			logger.String("risk_level", out.Result.RiskLevel),
			logger.Bool("high_risk", out.Assessment.HighRisk),
		)...)
	case KindInvalidInput:
		for _, key := range out.FieldErrors().Keys() {
			metrics.RecordInvalidField(key)
		}
		s.logger.Debug(ctx, "submission rejected", append(fields, logger.Error(out.Err))...)
	default:
		s.logger.Warn(ctx, "prediction failed", append(fields, logger.Error(out.Err))...)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make(map[string]int, len(allKinds))
	for _, k := range allKinds {
		outcomes[string(k)] = s.counts[k]
	}

	stats := map[string]interface{}{
		"submissions":         s.total,
		"outcomes":            outcomes,
		"lastLatencyMs":       s.lastLatency.Milliseconds(),
		"highRiskThreshold":   s.threshold,
		"predictionEndpoint":  "",
		"predictionTimeoutMs": int64(0),
	}
	if p, ok := s.predictor.(interface{ Endpoint() string }); ok {
		stats["predictionEndpoint"] = p.Endpoint()
	}
	if p, ok := s.predictor.(interface{ Timeout() time.Duration }); ok {
		stats["predictionTimeoutMs"] = p.Timeout().Milliseconds()
	}
	return stats
}
