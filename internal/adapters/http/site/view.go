package site

import (
	"net/url"
	"strconv"

	"github.com/okian/churn/internal/domain/customer"
	"github.com/okian/churn/internal/domain/prediction"
)

// Page text.
const (
	PageTitle = "Bank Churn Prediction"
	Title     = "Bank Customer Churn Prediction"
	Footer    = "Frontend: Go • Backend: ML prediction service • Model: TensorFlow + Scikit-learn"
)

type pageView struct {
	PageTitle string
	Title     string
	Footer    string
	Columns   [2][]fieldView
	Result    *prediction.Assessment
	Failure   *failureView
}

type fieldView struct {
	Key     string
	Label   string
	Select  bool
	Value   string
	Min     string
	Max     string
	Step    string
	Options []optionView
	Error   string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type failureView struct {
	Message string
	Body    string
	Caption string
}

// newPage lays out the form with values taken from form and messages from errs.
func newPage(form url.Values, errs customer.FieldErrors) *pageView {
	p := &pageView{PageTitle: PageTitle, Title: Title, Footer: Footer}
	for _, f := range customer.Fields() {
		value := form.Get(f.Key)
		fv := fieldView{
			Key:    f.Key,
			Label:  f.Label,
			Select: f.Kind == customer.KindSelect,
			Value:  value,
			Error:  errs[f.Key],
		}
		if fv.Select {
			for _, o := range f.Options {
				fv.Options = append(fv.Options, optionView{Value: o.Value, Label: o.Label, Selected: o.Value == value})
			}
		} else {
			fv.Min = formatBound(f.Min)
			fv.Max = formatBound(f.Max)
			fv.Step = formatBound(f.Step)
		}
		col := f.Column
		if col < 0 || col > 1 {
			col = 0
		}
		p.Columns[col] = append(p.Columns[col], fv)
	}
	return p
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
