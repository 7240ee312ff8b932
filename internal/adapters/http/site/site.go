// Package site serves the customer churn form.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/okian/churn/internal/adapters/http/api"
	service "github.com/okian/churn/internal/app"
	"github.com/okian/churn/internal/domain/customer"
	"github.com/okian/churn/pkg/logger"
)

// Error constants
var (
	ErrTemplates = errors.New("site templates could not be parsed")
	ErrRender    = errors.New("site page render failed")
)

// maxFormBytes bounds the size of a submitted form.
const maxFormBytes = 64 << 10

// Predictor runs one prediction per submission.
type Predictor interface {
	Predict(ctx context.Context, rec customer.Record) service.Outcome
	Reject(ctx context.Context, rec customer.Record, err error) service.Outcome
}

// Handler renders the form and its results.
type Handler struct {
	svc    Predictor
	pages  *template.Template
	logger logger.Logger
}

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithLogger sets a custom logger for the handler.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New parses the embedded pages and returns a Handler backed by svc.
func New(svc Predictor, opts ...Option) (*Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplates, err)
	}
	h := &Handler{svc: svc, pages: pages, logger: logger.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register attaches the form routes to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/", api.MetricsMiddleware(h.HandleForm, "form"))
	mux.HandleFunc("/predict", api.MetricsMiddleware(h.HandlePredict, "predict"))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(FS())))
}

// HandleForm handles GET / with the default values filled in.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, newPage(customer.Defaults().Values(), nil))
}

// HandlePredict handles POST /predict.
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.Warn(r.Context(), "unreadable form", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := r.PostForm

	rec, err := customer.FromForm(form)
	var out service.Outcome
	if err != nil {
		out = h.svc.Reject(r.Context(), rec, err)
	} else {
		out = h.svc.Predict(r.Context(), rec)
		form = rec.Values()
	}

	status, page := present(form, out)
	h.render(w, r, status, page)
}

// present maps an outcome onto the page and its HTTP status.
func present(form url.Values, out service.Outcome) (int, *pageView) {
	page := newPage(form, out.FieldErrors())

	switch out.Kind() {
	case service.KindSuccess:
		a := out.Assessment
		page.Result = &a
		return http.StatusOK, page
	case service.KindInvalidInput:
		return http.StatusUnprocessableEntity, page
	case service.KindServiceError:
		page.Failure = &failureView{Message: service.MsgServiceError}
		if se := out.ServiceError(); se != nil {
			page.Failure.Body = se.PrettyBody()
		}
		return http.StatusBadGateway, page
	case service.KindUnavailable, service.KindInvalidResponse:
		page.Failure = &failureView{Message: out.Kind().Message(), Caption: out.Err.Error()}
		return http.StatusBadGateway, page
	default:
		page.Failure = &failureView{Message: service.MsgInternal}
		return http.StatusInternalServerError, page
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page *pageView) {
	var buf bytes.Buffer
	if err := templ.FromGoHTML(h.pages.Lookup("page"), page).Render(r.Context(), &buf); err != nil {
		h.logger.Error(r.Context(), "render page", logger.Error(fmt.Errorf("%w: %w", ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
