package portfolio

import "fmt"

// FillPolicy decides how an underfunded BUY order is handled.
type FillPolicy int

const (
	// FillAutomatic fills whatever the remaining cash affords, down to zero
	// shares. Never rejects for lack of funds.
	FillAutomatic FillPolicy = iota
	// FillReject rejects the order entirely unless it is fully affordable.
	FillReject
	// FillAskConfirmation defers the order to an out-of-band approval.
	FillAskConfirmation
	// FillSmart fills partially when the affordable fraction is at or above
	// the configured threshold, rejects entirely below it.
	FillSmart
)

func (p FillPolicy) String() string {
	switch p {
	case FillAutomatic:
		return "automatic"
	case FillReject:
		return "reject"
	case FillAskConfirmation:
		return "ask"
	case FillSmart:
		return "smart"
	default:
		return "unknown"
	}
}

// ParseFillPolicy parses a policy name as persisted in the ledger file.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch s {
	case "automatic":
		return FillAutomatic, nil
	case "reject":
		return FillReject, nil
	case "ask":
		return FillAskConfirmation, nil
	case "smart":
		return FillSmart, nil
	default:
		return 0, fmt.Errorf("unknown partial-fill policy: %q", s)
	}
}

// PolicyParams are the runtime parameters of the partial-fill policy.
type PolicyParams struct {
	// MinCashReserve is subtracted from the available cash before any buy is
	// considered affordable.
	MinCashReserve Money
	// SmartThreshold is the minimum affordable fraction (0..1) for the smart
	// policy to accept a partial fill.
	SmartThreshold float64
}

// DefaultPolicyParams returns the parameters a fresh ledger starts with.
func DefaultPolicyParams() PolicyParams {
	return PolicyParams{MinCashReserve: USD(0), SmartThreshold: 0.8}
}

// FillDecision is the outcome of evaluating one BUY order against the
// remaining cash balance.
type FillDecision struct {
	Status Status
	Fill   Quantity
	Reason string
}

// fillFunc is a pure strategy: (remaining cash, required cash, price,
// requested quantity, params) to a decision. One per policy tag, so the
// planner carries no branching on policy identity.
type fillFunc func(remaining, required, price Money, requested Quantity, params PolicyParams) FillDecision

var fillStrategies = map[FillPolicy]fillFunc{
	FillAutomatic:       fillAutomatic,
	FillReject:          fillReject,
	FillAskConfirmation: fillAsk,
	FillSmart:           fillSmart,
}

// decideFill evaluates one BUY order under the given policy.
func decideFill(policy FillPolicy, remaining, required, price Money, requested Quantity, params PolicyParams) FillDecision {
	strategy, ok := fillStrategies[policy]
	if !ok {
		strategy = fillAutomatic
	}
	return strategy(remaining, required, price, requested, params)
}

func fillAutomatic(remaining, required, price Money, requested Quantity, _ PolicyParams) FillDecision {
	if remaining.GreaterThanOrEqual(required) {
		return FillDecision{Status: Executed, Fill: requested}
	}
	fill := affordable(remaining, price)
	return FillDecision{
		Status: PartiallyExecuted,
		Fill:   fill,
		Reason: fmt.Sprintf("partial fill %s of %s: insufficient cash (%s available, %s required)", fill, requested, remaining, required),
	}
}

func fillReject(remaining, required, _ Money, requested Quantity, _ PolicyParams) FillDecision {
	if remaining.GreaterThanOrEqual(required) {
		return FillDecision{Status: Executed, Fill: requested}
	}
	return FillDecision{
		Status: Rejected,
		Fill:   Q(0),
		Reason: fmt.Sprintf("INSUFFICIENT_FUNDS: %s required, %s available", required, remaining),
	}
}

func fillAsk(remaining, required, _ Money, requested Quantity, _ PolicyParams) FillDecision {
	if remaining.GreaterThanOrEqual(required) {
		return FillDecision{Status: Executed, Fill: requested}
	}
	return FillDecision{
		Status: Deferred,
		Fill:   Q(0),
		Reason: fmt.Sprintf("AWAITING_CONFIRMATION: %s required, %s available; approve to fill partially", required, remaining),
	}
}

func fillSmart(remaining, required, price Money, requested Quantity, params PolicyParams) FillDecision {
	if remaining.GreaterThanOrEqual(required) {
		return FillDecision{Status: Executed, Fill: requested}
	}
	// required can be zero here when the quote price is zero and the
	// reserve pushed remaining below zero; nothing is affordable then.
	fraction := 0.0
	if !required.IsZero() {
		fraction = remaining.Ratio(required)
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction >= params.SmartThreshold {
		fill := affordable(remaining, price)
		return FillDecision{
			Status: PartiallyExecuted,
			Fill:   fill,
			Reason: fmt.Sprintf("partial fill %s of %s: affordable fraction %.2f above threshold %.2f", fill, requested, fraction, params.SmartThreshold),
		}
	}
	return FillDecision{
		Status: Rejected,
		Fill:   Q(0),
		Reason: fmt.Sprintf("BELOW_SMART_THRESHOLD: affordable fraction %.2f below threshold %.2f", fraction, params.SmartThreshold),
	}
}

// affordable returns floor(remaining/price), never negative.
func affordable(remaining, price Money) Quantity {
	if remaining.IsNegative() || price.IsZero() {
		return Q(0)
	}
	return remaining.FloorDiv(price)
}
