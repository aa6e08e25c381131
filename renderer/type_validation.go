package renderer

import (
	portfolio "github.com/rcolo88/Trading-sub001"
)

// Validation is the flat view of a standalone consensus check.
type Validation struct {
	Consensus  bool
	Valuations []ValuationRow
	Failures   []string
	Drift      []string
}

// NewValidation builds the view from a validation report.
func NewValidation(report portfolio.ValidationReport) *Validation {
	v := &Validation{Consensus: report.Consensus()}
	for _, val := range report.Valuations {
		v.Valuations = append(v.Valuations, ValuationRow{
			Method: string(val.Method),
			NAV:    val.NAV.String(),
			Detail: val.Detail,
		})
	}
	for _, f := range report.Failures {
		v.Failures = append(v.Failures, f.String())
	}
	v.Drift = append(v.Drift, report.Drift...)
	return v
}

// ValidationMarkdown renders the Validation view to a markdown string.
func ValidationMarkdown(v *Validation) string {
	partials := map[string]string{
		"run_validation": "run_validation.md",
	}
	return renderTemplate("validation", "validation.md", partials, v)
}
