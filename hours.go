package portfolio

import (
	"fmt"
	"time"
)

// MarketHours is the trading window that gates a mutating run. The gate is a
// plain schedule check against the exchange clock; holidays are not modeled
// and can be worked around with the run command's -force flag.
type MarketHours struct {
	// Timezone is an IANA name, e.g. "America/New_York".
	Timezone string `yaml:"timezone"`
	// Open and Close are wall-clock times in the exchange timezone, "15:04"
	// format.
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// DefaultMarketHours is the NYSE regular session.
func DefaultMarketHours() MarketHours {
	return MarketHours{Timezone: "America/New_York", Open: "09:30", Close: "16:00"}
}

// IsOpen reports whether t falls inside the trading window.
func (h MarketHours) IsOpen(t time.Time) (bool, error) {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return false, fmt.Errorf("invalid market timezone %q: %w", h.Timezone, err)
	}
	open, err := time.Parse("15:04", h.Open)
	if err != nil {
		return false, fmt.Errorf("invalid market open time %q: %w", h.Open, err)
	}
	close, err := time.Parse("15:04", h.Close)
	if err != nil {
		return false, fmt.Errorf("invalid market close time %q: %w", h.Close, err)
	}

	local := t.In(loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false, nil
	}
	minutes := local.Hour()*60 + local.Minute()
	openMin := open.Hour()*60 + open.Minute()
	closeMin := close.Hour()*60 + close.Minute()
	return minutes >= openMin && minutes < closeMin, nil
}
