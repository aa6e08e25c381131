package portfolio

import (
	"fmt"
	"regexp"
)

// Action is the verb of a parsed trading instruction.
type Action string

// Actions recognized by the order grammar. Anything else is an UNKNOWN_ACTION
// parse error, never a guess.
const (
	ActionBuy                Action = "BUY"
	ActionSell               Action = "SELL"
	ActionSellAll            Action = "SELL ALL"
	ActionHold               Action = "HOLD"
	ActionReduce             Action = "REDUCE"
	ActionSetStopLoss        Action = "SET STOP-LOSS"
	ActionUpdateProfitTarget Action = "UPDATE PROFIT-TARGET"
)

// actionKeywords lists actions by decreasing keyword length so that
// "SELL ALL" is matched before "SELL".
var actionKeywords = []Action{
	ActionUpdateProfitTarget,
	ActionSetStopLoss,
	ActionSellAll,
	ActionReduce,
	ActionSell,
	ActionHold,
	ActionBuy,
}

// IsSetStyle reports whether the action mutates risk parameters (a percentage
// target) instead of shares and cash.
func (a Action) IsSetStyle() bool {
	return a == ActionSetStopLoss || a == ActionUpdateProfitTarget
}

// IsSell reports whether the action disposes of shares.
func (a Action) IsSell() bool {
	return a == ActionSell || a == ActionSellAll || a == ActionReduce
}

// Priority is the execution tier an order inherits from its document section.
type Priority int

const (
	High Priority = iota
	Medium
	Low
)

func (p Priority) String() string {
	switch p {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	default:
		return "unknown"
	}
}

// ParsePriority parses a priority tier name.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "HIGH":
		return High, nil
	case "MEDIUM":
		return Medium, nil
	case "LOW":
		return Low, nil
	default:
		return Low, fmt.Errorf("unknown priority tier: %q", s)
	}
}

// QuantityKind discriminates the three quantity forms the grammar accepts.
type QuantityKind int

const (
	// QtyShares is an explicit non-negative whole share count.
	QtyShares QuantityKind = iota
	// QtyAll is the "all" sentinel, resolved against current holdings at plan
	// time, not parse time.
	QtyAll
	// QtyPercent is a signed percentage, only valid on SET-style actions.
	QtyPercent
)

// QuantityExpr is the quantity clause of an order. Exactly one of Shares or
// Percent is meaningful, selected by Kind.
type QuantityExpr struct {
	Kind    QuantityKind
	Shares  Quantity
	Percent Percent
}

func (q QuantityExpr) String() string {
	switch q.Kind {
	case QtyAll:
		return "all"
	case QtyPercent:
		return q.Percent.SignedString()
	default:
		return q.Shares.String()
	}
}

// Order is one parsed trading instruction.
type Order struct {
	Action     Action
	Ticker     string
	Quantity   QuantityExpr
	Priority   Priority
	Reasoning  string // free text, kept for audit only, never validated
	SourceLine int
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %s", o.Action, o.Quantity, o.Ticker)
}

// ParseErrorCode identifies the grammar rule a malformed line violated.
type ParseErrorCode string

const (
	UnknownAction             ParseErrorCode = "UNKNOWN_ACTION"
	AmbiguousQuantity         ParseErrorCode = "AMBIGUOUS_QUANTITY"
	TickerCase                ParseErrorCode = "TICKER_CASE"
	MissingTicker             ParseErrorCode = "MISSING_TICKER"
	MissingReasoningSeparator ParseErrorCode = "MISSING_REASONING_SEPARATOR"
)

// ParseError reports one malformed order line. The line is skipped and the
// rest of the document still parses.
type ParseError struct {
	Code ParseErrorCode
	Line int
	Text string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Code, e.Text)
}

// ParseWarning reports a recovered oddity, like an order found outside any
// priority section (it defaults to LOW).
type ParseWarning struct {
	Line int
	Text string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Text)
}

// tickerPattern is the exact shape of a valid ticker token: 1 to 6 uppercase
// alphanumeric characters with at least one letter.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{1,6}$`)

// tickerCasePattern matches a would-be ticker written with the wrong case.
var tickerCasePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{0,5}$`)

// ValidTicker reports whether s is a well-formed ticker token.
func ValidTicker(s string) bool {
	if !tickerPattern.MatchString(s) {
		return false
	}
	// a pure number is not a ticker
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
