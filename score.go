package portfolio

// Scorer turns raw fundamentals into a 0-100 quality score for a ticker.
// The scoring formula lives outside this module; reports consume a Scorer
// when one is provided and omit the column otherwise.
type Scorer interface {
	Score(ticker string) (float64, error)
}
