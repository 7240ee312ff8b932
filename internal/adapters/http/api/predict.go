package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/churn/internal/app"
	"github.com/okian/churn/internal/domain/customer"
)

const maxRequestBytes = 64 << 10

// Predictor runs one prediction per request.
type Predictor interface {
	Predict(ctx context.Context, rec customer.Record) service.Outcome
	Reject(ctx context.Context, rec customer.Record, err error) service.Outcome
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	svc Predictor
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(svc Predictor) *PredictHandler {
	return &PredictHandler{svc: svc}
}

type predictResponse struct {
	RequestID        string  `json:"request_id"`
	ChurnProbability float64 `json:"churn_probability"`
	RiskLevel        string  `json:"risk_level"`
	ChurnPercent     string  `json:"churn_percent"`
	HighRisk         bool    `json:"high_risk"`
	Advice           string  `json:"advice"`
}

type upstreamErrorResponse struct {
	Code           string          `json:"code"`
	Message        string          `json:"message"`
	UpstreamStatus int             `json:"upstream_status"`
	UpstreamBody   json.RawMessage `json:"upstream_body"`
}

// HandlePredict handles POST /api/predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	rec, err := decodeRecord(w, r)
	if err != nil {
		var fe customer.FieldErrors
		if errors.As(err, &fe) {
			out := h.svc.Reject(r.Context(), rec, fe)
			w.Header().Set("X-Request-ID", out.RequestID)
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Code: "invalid_record", Message: ErrInvalidRecord.Error(), Fields: fe,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	out := h.svc.Predict(r.Context(), rec)
	w.Header().Set("X-Request-ID", out.RequestID)

	switch out.Kind() {
	case service.KindSuccess:
		writeJSON(w, http.StatusOK, predictResponse{
			RequestID:        out.RequestID,
			ChurnProbability: out.Result.ChurnProbability,
			RiskLevel:        out.Result.RiskLevel,
			ChurnPercent:     out.Assessment.Probability,
			HighRisk:         out.Assessment.HighRisk,
			Advice:           out.Assessment.Advice,
		})
	case service.KindInvalidInput:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code: "invalid_record", Message: ErrInvalidRecord.Error(), Fields: out.FieldErrors(),
		})
	case service.KindServiceError:
		resp := upstreamErrorResponse{Code: "upstream_error", Message: ErrUpstream.Error(), UpstreamBody: json.RawMessage("null")}
		if se := out.ServiceError(); se != nil {
			resp.UpstreamStatus = se.StatusCode
			resp.UpstreamBody = se.RawBody()
		}
		writeJSON(w, http.StatusBadGateway, resp)
	case service.KindInvalidResponse:
		writeError(w, http.StatusBadGateway, "invalid_response", out.Err)
	case service.KindUnavailable:
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", out.Err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
	}
}

// decodeRecord reads a JSON customer record. Every field key must be present;
// missing keys are reported as FieldErrors, malformed JSON as a plain error.
func decodeRecord(w http.ResponseWriter, r *http.Request) (customer.Record, error) {
	var rec customer.Record

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&raw); err != nil {
		return rec, err
	}

	missing := customer.FieldErrors{}
	for _, f := range customer.Fields() {
		if v, ok := raw[f.Key]; !ok || string(v) == "null" {
			missing[f.Key] = "is required"
		}
	}
	if len(missing) > 0 {
		return rec, missing
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}
