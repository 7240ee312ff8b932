package site_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/okian/churn/internal/adapters/http/site"
	"github.com/okian/churn/internal/adapters/predictor"
	service "github.com/okian/churn/internal/app"
	"github.com/okian/churn/internal/domain/customer"
	"github.com/okian/churn/internal/domain/prediction"
	. "github.com/smartystreets/goconvey/convey"
)

type stubPredictor struct {
	result prediction.Result
	err    error
	calls  int
	last   customer.Record
}

func (s *stubPredictor) Predict(_ context.Context, rec customer.Record) (prediction.Result, error) {
	s.calls++
	s.last = rec
	return s.result, s.err
}

func newMux(stub *stubPredictor) *http.ServeMux {
	h, err := site.New(service.New(stub))
	So(err, ShouldBeNil)
	mux := http.NewServeMux()
	h.Register(context.Background(), mux)
	return mux
}

func submit(mux *http.ServeMux, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestForm(t *testing.T) {
	Convey("Given the site handler", t, func() {
		stub := &stubPredictor{}
		mux := newMux(stub)

		Convey("When the form is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			body := w.Body.String()

			Convey("Then the page shows the title and every field with its default", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
				So(body, ShouldContainSubstring, site.Title)
				So(body, ShouldContainSubstring, "Predict Churn")
				for _, f := range customer.Fields() {
					So(body, ShouldContainSubstring, `name="`+f.Key+`"`)
				}
				So(body, ShouldContainSubstring, `name="CreditScore" type="number" value="650" min="300" max="850" step="1"`)
				So(body, ShouldContainSubstring, `<option value="2" selected>2</option>`)
				So(body, ShouldContainSubstring, `<option value="1" selected>Yes</option>`)
				So(body, ShouldNotContainSubstring, "Prediction Result")
			})

			Convey("And the predictor is not called", func() {
				So(stub.calls, ShouldEqual, 0)
			})
		})

		Convey("When an unknown path is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the stylesheet is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/css")
		})

		Convey("When /predict is fetched with GET", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predict", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPredict(t *testing.T) {
	Convey("Given the site handler", t, func() {
		stub := &stubPredictor{result: prediction.Result{ChurnProbability: 0.8123, RiskLevel: "High Risk"}}
		mux := newMux(stub)
		form := customer.Defaults().Values()

		Convey("When a high risk customer is submitted", func() {
			form.Set("Geography", "Germany")
			w := submit(mux, form)
			body := w.Body.String()

			Convey("Then the result is rendered in a danger panel", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body, ShouldContainSubstring, "Prediction Result")
				So(body, ShouldContainSubstring, "81.2%")
				So(body, ShouldContainSubstring, `<div class="panel danger"><strong>High Risk</strong></div>`)
				So(body, ShouldContainSubstring, prediction.AdviceRetain)
			})

			Convey("And the submitted values stay in the form", func() {
				So(stub.last.Geography, ShouldEqual, "Germany")
				So(body, ShouldContainSubstring, `<option value="Germany" selected>Germany</option>`)
			})
		})

		Convey("When a stable customer is submitted", func() {
			stub.result = prediction.Result{ChurnProbability: 0.5, RiskLevel: "Low Risk"}
			w := submit(mux, form)
			body := w.Body.String()

			So(body, ShouldContainSubstring, "50.0%")
			So(body, ShouldContainSubstring, `<div class="panel success"><strong>Low Risk</strong></div>`)
			So(body, ShouldContainSubstring, prediction.AdviceStable)
		})

		Convey("When the form has invalid values", func() {
			form.Set("Age", "12")
			form.Set("Balance", "lots")
			w := submit(mux, form)
			body := w.Body.String()

			Convey("Then the form is shown again with messages", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(stub.calls, ShouldEqual, 0)
				So(body, ShouldContainSubstring, "must be between 18 and 92")
				So(body, ShouldContainSubstring, "must be a number")
				So(body, ShouldContainSubstring, `value="lots"`)
				So(body, ShouldNotContainSubstring, "Prediction Result")
			})
		})

		Convey("When the prediction service answers with an error", func() {
			stub.err = &predictor.ServiceError{StatusCode: 500, Body: []byte(`{"detail":"model not loaded"}`)}
			w := submit(mux, form)
			body := w.Body.String()

			Convey("Then the body is shown verbatim", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(body, ShouldContainSubstring, service.MsgServiceError)
				So(body, ShouldContainSubstring, "&#34;detail&#34;: &#34;model not loaded&#34;")
			})
		})

		Convey("When the prediction service cannot be reached", func() {
			stub.err = fmt.Errorf("%w: dial tcp 127.0.0.1:8000: connection refused", predictor.ErrUnavailable)
			w := submit(mux, form)
			body := w.Body.String()

			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(body, ShouldContainSubstring, service.MsgUnavailable)
			So(body, ShouldContainSubstring, "connection refused")
		})

		Convey("When the prediction service answers with garbage", func() {
			stub.err = fmt.Errorf("%w: missing churn_probability", predictor.ErrInvalidResponse)
			w := submit(mux, form)

			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(w.Body.String(), ShouldContainSubstring, service.MsgInvalidResponse)
		})

		Convey("When something unexpected fails", func() {
			stub.err = errors.New("boom")
			w := submit(mux, form)

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, service.MsgInternal)
		})
	})
}

func TestRegisterWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		h, err := site.New(service.New(&stubPredictor{}))
		So(err, ShouldBeNil)

		So(func() { h.Register(context.Background(), nil) }, ShouldPanic)
	})
}
