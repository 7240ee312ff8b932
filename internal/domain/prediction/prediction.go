// Package prediction holds the answer of the prediction service and the
// rules used to present it.
package prediction

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultHighRiskThreshold is the probability above which a customer is
// presented as likely to churn.
const DefaultHighRiskThreshold = 0.5

// Advice shown next to the risk level.
const (
	AdviceRetain = "Consider retention strategies: offers, outreach, loyalty benefits."
	AdviceStable = "Customer appears stable. No immediate action required."
)

// Result is the body of a successful prediction response.
type Result struct {
	ChurnProbability float64 `json:"churn_probability"`
	RiskLevel        string  `json:"risk_level"`
}

// Validate checks the probability is a finite value in [0,1] and that a
// risk level was given.
func (r Result) Validate() error {
	p := r.ChurnProbability
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
		return fmt.Errorf("%w: churn_probability %v outside [0,1]", ErrInvalidResult, p)
	}
	if strings.TrimSpace(r.RiskLevel) == "" {
		return fmt.Errorf("%w: missing risk_level", ErrInvalidResult)
	}
	return nil
}

// Assessment is a Result prepared for display.
type Assessment struct {
	Probability string `json:"churn_percent"`
	RiskLevel   string `json:"risk_level"`
	HighRisk    bool   `json:"high_risk"`
	Advice      string `json:"advice"`
}

// Assess decides how a result is presented. A customer is high risk when the
// probability is strictly above threshold.
func Assess(r Result, threshold float64) Assessment {
	a := Assessment{
		Probability: FormatProbability(r.ChurnProbability),
		RiskLevel:   r.RiskLevel,
		HighRisk:    r.ChurnProbability > threshold,
	}
	if a.HighRisk {
		a.Advice = AdviceRetain
	} else {
		a.Advice = AdviceStable
	}
	return a
}

// FormatProbability renders p as a percentage with one decimal, e.g. 32.5%.
func FormatProbability(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 1, 64) + "%"
}
