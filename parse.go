package portfolio

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrNoOrdersSection is returned when the document has no recognizable ORDERS
// section at all. This is the only condition that fails a whole parse; any
// malformed individual line is reported as a ParseError and skipped.
var ErrNoOrdersSection = errors.New("document has no ORDERS section")

// The advisory document is a deliberately constrained markdown sub-language:
//
//	## ORDERS
//	### IMMEDIATE EXECUTION (HIGH PRIORITY)
//	**BUY 15 shares of NVDA** - earnings momentum supports a larger position
//
// Section headers carry the priority tier, order lines carry the instruction.
// Parsing is strict on purpose: a deviation from the grammar is a localized
// error, never a silent coercion.

// ParseDocument parses an advisory document and returns the orders it
// contains in document order, along with every parse error and warning
// encountered on the way.
func ParseDocument(src []byte) ([]Order, []ParseError, []ParseWarning, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	lines := newLineIndex(src)

	var (
		orders       []Order
		perrs        []ParseError
		warns        []ParseWarning
		inOrders     bool
		sawOrders    bool
		ordersLevel  int
		priority     = Low
		havePriority bool
	)

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			title := strings.ToUpper(string(nodeText(v, src)))
			switch {
			case !inOrders && strings.Contains(title, "ORDERS"):
				inOrders, sawOrders = true, true
				ordersLevel = v.Level
				priority, havePriority = Low, false
			case inOrders && v.Level <= ordersLevel:
				inOrders = false
			case inOrders:
				if p, ok := headingPriority(title); ok {
					priority, havePriority = p, true
				}
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			if !inOrders {
				return ast.WalkContinue, nil
			}
			segs := n.Lines()
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				raw := strings.TrimRight(string(seg.Value(src)), "\n")
				lineno := lines.at(seg.Start)

				ord, perr, isOrder := parseOrderLine(raw)
				if !isOrder {
					continue
				}
				if perr != nil {
					perr.Line = lineno
					perrs = append(perrs, *perr)
					continue
				}
				ord.Priority = priority
				ord.SourceLine = lineno
				if !havePriority {
					warns = append(warns, ParseWarning{
						Line: lineno,
						Text: fmt.Sprintf("order %q outside any priority section, defaulting to LOW", ord.String()),
					})
				}
				orders = append(orders, *ord)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if !sawOrders {
		return nil, nil, nil, ErrNoOrdersSection
	}
	return orders, perrs, warns, nil
}

// headingPriority recognizes the priority tier named in a section header,
// e.g. "IMMEDIATE EXECUTION (HIGH PRIORITY)".
func headingPriority(title string) (Priority, bool) {
	switch {
	case strings.Contains(title, "HIGH"):
		return High, true
	case strings.Contains(title, "MEDIUM"):
		return Medium, true
	case strings.Contains(title, "LOW"):
		return Low, true
	}
	return Low, false
}

// actionRe finds an action keyword anywhere in a line, case-insensitively.
// Longest keywords first so "SELL ALL" wins over "SELL".
var actionRe = regexp.MustCompile(`(?i)\b(UPDATE PROFIT-TARGET|SET STOP-LOSS|SELL ALL|REDUCE|SELL|HOLD|BUY)\b`)

// percentRe matches a signed percentage token like "-8%" or "+12.5%".
var percentRe = regexp.MustCompile(`^[+-]?\d+(\.\d+)?%$`)

// integerRe matches a plain non-negative integer token.
var integerRe = regexp.MustCompile(`^\d+$`)

// vagueWords are quantity words the grammar explicitly refuses to interpret.
var vagueWords = map[string]bool{
	"some": true, "few": true, "bit": true, "little": true,
	"more": true, "most": true, "much": true, "everything": true,
	"several": true, "couple": true, "rest": true, "remainder": true,
}

// fillerWords are tokens that may appear between quantity and ticker without
// carrying meaning ("15 shares of NVDA", "stop-loss on AMD to -8%").
var fillerWords = map[string]bool{
	"share": true, "shares": true, "of": true, "in": true, "on": true,
	"to": true, "at": true, "the": true, "position": true, "a": true,
	"by": true, "from": true,
}

// parseOrderLine applies the order grammar to one raw line. It returns
// isOrder=false for prose lines that do not even mention an action. For order
// attempts, it returns either the parsed order or the first grammar violation
// (rule order: action, quantity, ticker, reasoning separator). The returned
// ParseError has no line number; the caller fills it in.
func parseOrderLine(raw string) (ord *Order, perr *ParseError, isOrder bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil, false
	}

	bold := strings.HasPrefix(trimmed, "**")
	body := strings.TrimPrefix(trimmed, "**")

	// Rule 1: the action keyword.
	var action Action
	var rest string
	if bold {
		found := false
		for _, kw := range actionKeywords {
			if matchKeyword(body, string(kw)) {
				action, rest, found = kw, body[len(kw):], true
				break
			}
		}
		if !found {
			// A bold line in the orders section is an order attempt with an
			// unrecognized verb ("Purchase", "Acquire", ...).
			return nil, &ParseError{Code: UnknownAction, Text: trimmed}, true
		}
	} else {
		loc := actionRe.FindStringIndex(body)
		if loc == nil {
			return nil, nil, false // prose line, not an order attempt
		}
		action = canonicalAction(body[loc[0]:loc[1]])
		rest = body[loc[1]:]
	}

	// Split the instruction clause from the reasoning clause. The closing
	// bold marker ends the clause; the dash separator starts the reasoning.
	clause := rest
	reasoning := ""
	sepFound := false
	if i := strings.Index(clause, "**"); i >= 0 {
		tail := clause[i+2:]
		clause = clause[:i]
		if j := strings.Index(tail, "- "); j >= 0 && strings.TrimSpace(tail[:j]) == "" {
			reasoning = strings.TrimSpace(tail[j+2:])
			sepFound = true
		}
	} else if j := strings.Index(clause, " - "); j >= 0 {
		reasoning = strings.TrimSpace(clause[j+3:])
		clause = clause[:j]
		sepFound = true
	}

	tokens := fields(clause)

	// Rule 2: the quantity token.
	var qty QuantityExpr
	var qtyToken string
	switch {
	case action == ActionSellAll, action == ActionHold:
		qty = QuantityExpr{Kind: QtyAll}
	case action.IsSetStyle():
		found := false
		for _, t := range tokens {
			if percentRe.MatchString(t) {
				v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(t, "+"), "%"), 64)
				if err == nil {
					qty = QuantityExpr{Kind: QtyPercent, Percent: Percent(v)}
					qtyToken, found = t, true
				}
				break
			}
		}
		if !found {
			return nil, &ParseError{Code: AmbiguousQuantity, Text: trimmed}, true
		}
	default: // BUY, SELL, REDUCE
		found := false
		for _, t := range tokens {
			if strings.EqualFold(t, "all") {
				qty = QuantityExpr{Kind: QtyAll}
				qtyToken, found = t, true
				break
			}
			if integerRe.MatchString(t) {
				n, err := strconv.ParseInt(t, 10, 64)
				if err != nil {
					break
				}
				qty = QuantityExpr{Kind: QtyShares, Shares: Q(n)}
				qtyToken, found = t, true
				break
			}
			if vagueWords[strings.ToLower(t)] {
				break
			}
		}
		if !found {
			return nil, &ParseError{Code: AmbiguousQuantity, Text: trimmed}, true
		}
	}

	// Rule 3: the ticker token.
	ticker := ""
	qtySkipped := false
	for _, t := range tokens {
		if t == qtyToken && !qtySkipped {
			qtySkipped = true
			continue
		}
		if fillerWords[strings.ToLower(t)] || integerRe.MatchString(t) || percentRe.MatchString(t) {
			continue
		}
		if ValidTicker(t) {
			ticker = t
			break
		}
		if tickerCasePattern.MatchString(t) && t != strings.ToUpper(t) {
			return nil, &ParseError{Code: TickerCase, Text: trimmed}, true
		}
	}
	if ticker == "" {
		return nil, &ParseError{Code: MissingTicker, Text: trimmed}, true
	}

	// Rule 4: the reasoning separator.
	if !sepFound {
		return nil, &ParseError{Code: MissingReasoningSeparator, Text: trimmed}, true
	}

	return &Order{
		Action:    action,
		Ticker:    ticker,
		Quantity:  qty,
		Reasoning: reasoning,
	}, nil, true
}

// matchKeyword reports whether s starts with the keyword followed by a word
// boundary.
func matchKeyword(s, kw string) bool {
	if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	c := s[len(kw)]
	return c == ' ' || c == '*' || c == ':'
}

// canonicalAction maps a case-insensitive keyword match back to its Action.
func canonicalAction(kw string) Action {
	up := strings.ToUpper(kw)
	for _, a := range actionKeywords {
		if string(a) == up {
			return a
		}
	}
	return Action(up)
}

// fields splits a clause into tokens, stripping trailing punctuation.
func fields(clause string) []string {
	raw := strings.Fields(clause)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.Trim(t, ",.;:()")
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// nodeText collects the source text of all inline children of a node.
func nodeText(n ast.Node, src []byte) []byte {
	var out []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			out = append(out, t.Segment.Value(src)...)
		} else {
			out = append(out, nodeText(c, src)...)
		}
	}
	return out
}

// lineIndex maps byte offsets to 1-based line numbers for error reporting.
type lineIndex struct {
	starts []int
}

func newLineIndex(src []byte) *lineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts}
}

func (l *lineIndex) at(offset int) int {
	return sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset })
}
