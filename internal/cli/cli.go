// Package cli implements churnctl, a command line client for the prediction
// service that shares the form's validation and presentation rules.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/okian/churn/internal/adapters/predictor"
	service "github.com/okian/churn/internal/app"
	"github.com/okian/churn/internal/config"
	"github.com/okian/churn/internal/domain/customer"
	"github.com/okian/churn/pkg/logger"
)

// ErrPredictionFailed is returned when a prediction does not succeed.
var ErrPredictionFailed = errors.New("prediction failed")

// NewRootCommand builds the churnctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "churnctl",
		Short: "Predict bank customer churn from the command line",
		Long: `churnctl sends one customer record to the prediction service and prints
the churn probability and risk level.

Configuration is read the same way as the server: defaults, then the YAML file
named by CHURN_CONFIG, then CHURN_* environment variables (a .env file is
loaded first when present).`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.AddCommand(newPredictCommand(), newFieldsCommand())
	return root
}

type predictOptions struct {
	values   map[string]*string
	url      string
	timeout  time.Duration
	json     bool
	logLevel string
}

func newPredictCommand() *cobra.Command {
	opts := &predictOptions{values: make(map[string]*string)}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict churn for one customer",
		Long: `Predict churn for one customer. Every field defaults to the value the form
starts with; pass flags to override them. The command exits non-zero when the
record is invalid or the prediction service fails.`,
		Example: `  churnctl predict --age 52 --geography Germany --is-active-member 0
  churnctl predict --url http://localhost:8000/predict --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, opts)
		},
	}

	flags := cmd.Flags()
	for _, f := range customer.Fields() {
		v := new(string)
		opts.values[f.Key] = v
		flags.StringVar(v, FlagName(f.Key), f.Default(), fmt.Sprintf("%s (%s)", f.Label, domain(f)))
	}
	flags.StringVar(&opts.url, "url", "", "prediction endpoint (overrides predict_url)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "prediction timeout (overrides predict_timeout_ms)")
	flags.BoolVar(&opts.json, "json", false, "print the result as JSON")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (overrides log_level)")
	return cmd
}

func runPredict(cmd *cobra.Command, opts *predictOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(logger.FormatPretty), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if err := logger.SetLevelString(level); err != nil {
		return err
	}
	log := logger.Named("churnctl")

	endpoint := cfg.PredictURL
	if opts.url != "" {
		endpoint = opts.url
	}
	timeout := cfg.PredictTimeout()
	if opts.timeout > 0 {
		timeout = opts.timeout
	}

	client, err := predictor.New(endpoint, predictor.WithTimeout(timeout), predictor.WithLogger(log))
	if err != nil {
		return err
	}
	svc := service.New(client,
		service.WithLogger(log),
		service.WithHighRiskThreshold(cfg.HighRiskThreshold),
	)

	form := url.Values{}
	for key, v := range opts.values {
		form.Set(key, *v)
	}

	var outcome service.Outcome
	if rec, err := customer.FromForm(form); err != nil {
		outcome = svc.Reject(ctx, rec, err)
	} else {
		outcome = svc.Predict(ctx, rec)
	}

	if opts.json {
		printJSON(out, outcome)
	} else {
		printText(out, outcome)
	}

	if outcome.Err != nil {
		return fmt.Errorf("%w: %s", ErrPredictionFailed, outcome.Kind())
	}
	return nil
}

func printText(w io.Writer, o service.Outcome) {
	switch o.Kind() {
	case service.KindSuccess:
		fmt.Fprintln(w, "Prediction Result")
		fmt.Fprintf(w, "Churn Probability: %s\n", o.Assessment.Probability)
		fmt.Fprintf(w, "Risk Level:        %s\n", o.Assessment.RiskLevel)
		fmt.Fprintln(w, o.Assessment.Advice)
	case service.KindInvalidInput:
		fmt.Fprintln(w, service.MsgInvalidInput)
		fe := o.FieldErrors()
		for _, key := range fe.Keys() {
			fmt.Fprintf(w, "  --%s: %s\n", FlagName(key), fe[key])
		}
	case service.KindServiceError:
		fmt.Fprintln(w, service.MsgServiceError)
		if se := o.ServiceError(); se != nil {
			fmt.Fprintln(w, se.PrettyBody())
		}
	default:
		fmt.Fprintln(w, o.Kind().Message())
		fmt.Fprintln(w, o.Err.Error())
	}
}

type jsonOutcome struct {
	RequestID        string            `json:"request_id"`
	Outcome          string            `json:"outcome"`
	ChurnProbability *float64          `json:"churn_probability,omitempty"`
	RiskLevel        string            `json:"risk_level,omitempty"`
	ChurnPercent     string            `json:"churn_percent,omitempty"`
	HighRisk         *bool             `json:"high_risk,omitempty"`
	Advice           string            `json:"advice,omitempty"`
	Message          string            `json:"message,omitempty"`
	Error            string            `json:"error,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
	UpstreamStatus   int               `json:"upstream_status,omitempty"`
	UpstreamBody     json.RawMessage   `json:"upstream_body,omitempty"`
}

func printJSON(w io.Writer, o service.Outcome) {
	res := jsonOutcome{RequestID: o.RequestID, Outcome: string(o.Kind())}
	if o.Err == nil {
		p, high := o.Result.ChurnProbability, o.Assessment.HighRisk
		res.ChurnProbability = &p
		res.HighRisk = &high
		res.RiskLevel = o.Result.RiskLevel
		res.ChurnPercent = o.Assessment.Probability
		res.Advice = o.Assessment.Advice
	} else {
		res.Message = o.Kind().Message()
		res.Error = o.Err.Error()
		res.Fields = o.FieldErrors()
		if se := o.ServiceError(); se != nil {
			res.UpstreamStatus = se.StatusCode
			res.UpstreamBody = se.RawBody()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}

func newFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the customer fields with their domain and default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tFLAG\tLABEL\tDOMAIN\tDEFAULT")
			for _, f := range customer.Fields() {
				fmt.Fprintf(tw, "%s\t--%s\t%s\t%s\t%s\n", f.Key, FlagName(f.Key), f.Label, domain(f), f.Default())
			}
			return tw.Flush()
		},
	}
}

// domain renders the allowed values of f, e.g. "300..850" or "1=Yes|0=No".
func domain(f customer.Field) string {
	if f.Kind != customer.KindSelect {
		return strconv.FormatFloat(f.Min, 'f', -1, 64) + ".." + strconv.FormatFloat(f.Max, 'f', -1, 64)
	}
	parts := make([]string, len(f.Options))
	for i, o := range f.Options {
		if o.Label == o.Value {
			parts[i] = o.Value
		} else {
			parts[i] = o.Value + "=" + o.Label
		}
	}
	return strings.Join(parts, "|")
}

// FlagName turns a field key into its flag, e.g. NumOfProducts -> num-of-products.
func FlagName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
