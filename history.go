package portfolio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// HistoryRecord is one line of the history export: the portfolio's net asset
// value after a completed run. The export is append-only and serves both the
// report renderer and the performance validator as an independent
// recomputation source.
type HistoryRecord struct {
	On        time.Time
	NAV       Money
	Cash      Money
	Positions int
}

// MarshalJSON implements the json.Marshaler interface for HistoryRecord.
func (h HistoryRecord) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("on", h.On.Format(time.RFC3339Nano))
	w.Append("nav", h.NAV)
	w.Append("cash", h.Cash)
	w.Append("positions", h.Positions)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for HistoryRecord.
func (h *HistoryRecord) UnmarshalJSON(data []byte) error {
	var j struct {
		On        string `json:"on"`
		NAV       jmoney `json:"nav"`
		Cash      jmoney `json:"cash"`
		Positions int    `json:"positions"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	on, err := time.Parse(time.RFC3339Nano, j.On)
	if err != nil {
		return fmt.Errorf("invalid history timestamp %q: %w", j.On, err)
	}
	*h = HistoryRecord{On: on, NAV: j.NAV.Money(), Cash: j.Cash.Money(), Positions: j.Positions}
	return nil
}

// DecodeHistory reads the whole history export from JSONL data.
func DecodeHistory(r io.Reader) ([]HistoryRecord, error) {
	var records []HistoryRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var h HistoryRecord
		if err := json.Unmarshal(line, &h); err != nil {
			return nil, fmt.Errorf("could not decode history line %q: %w", string(line), err)
		}
		records = append(records, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}
	return records, nil
}

// LoadHistory reads the history file. A missing file is an empty history.
func LoadHistory(path string) ([]HistoryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not open history file %q: %w", path, err)
	}
	defer f.Close()
	return DecodeHistory(f)
}

// AppendHistory appends one record to the history export.
func AppendHistory(path string, h HistoryRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open history file %q for append: %w", path, err)
	}
	defer f.Close()
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}
	return nil
}
