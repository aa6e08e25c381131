package portfolio

import "fmt"

// Percent is a signed percentage, the unit of the per-ticker risk
// parameters: a stop-loss is negative ("SET STOP-LOSS on AMD to -8%"), a
// profit target positive. Unlike Money it is a plain float; risk levels are
// operator-chosen round figures, not accounting values.
type Percent float64

// Equal compares within a fixed tolerance, since values travel through
// document text and flag parsing.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

// SignedString renders with an explicit sign; the zero value renders as "-"
// so an unset risk parameter reads as absent in reports.
func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}
