package wedding

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Model output is loosely typed: numbers arrive as numbers or as strings
// such as "20 000 €", and lists of styles arrive where a string is expected.
// The decoders below accept those shapes and drop anything else to nil.

// UnmarshalJSON decodes wedding data leniently. Non-positive guest counts and
// budgets, and empty strings, decode as unknown.
func (d *WeddingData) UnmarshalJSON(data []byte) error {
	var raw struct {
		Guests   json.RawMessage `json:"guests"`
		Budget   json.RawMessage `json:"budget"`
		Location json.RawMessage `json:"location"`
		Date     json.RawMessage `json:"date"`
		Style    json.RawMessage `json:"style"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = WeddingData{
		Guests:   positiveInt(raw.Guests),
		Budget:   positiveInt(raw.Budget),
		Location: text(raw.Location),
		Date:     text(raw.Date),
		Style:    text(raw.Style),
	}
	return nil
}

// UnmarshalJSON decodes a budget line leniently.
func (b *BudgetItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Category   json.RawMessage `json:"category"`
		Percentage json.RawMessage `json:"percentage"`
		Amount     json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = BudgetItem{}
	if s := text(raw.Category); s != nil {
		b.Category = *s
	}
	b.Percentage = float(raw.Percentage)
	if n := number(raw.Amount); n != nil {
		b.Amount = *n
	}
	return nil
}

// UnmarshalJSON decodes a timeline task and normalises its priority.
func (t *TimelineTask) UnmarshalJSON(data []byte) error {
	type plain struct {
		Task      json.RawMessage `json:"task"`
		Timeframe json.RawMessage `json:"timeframe"`
		Priority  json.RawMessage `json:"priority"`
		Category  json.RawMessage `json:"category"`
	}
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = TimelineTask{}
	if s := text(raw.Task); s != nil {
		t.Task = *s
	}
	if s := text(raw.Timeframe); s != nil {
		t.Timeframe = *s
	}
	if s := text(raw.Category); s != nil {
		t.Category = *s
	}
	var p string
	if s := text(raw.Priority); s != nil {
		p = *s
	}
	t.Priority = NormalizePriority(p)
	return nil
}

// NormalizePriority maps a free-form priority to high, medium or low.
func NormalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high", "haute", "élevée", "elevee", "urgent", "urgente":
		return PriorityHigh
	case "low", "basse", "faible":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// text decodes a string, or a list of strings joined with ", ".
func text(raw json.RawMessage) *string {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return &s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		var parts []string
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				parts = append(parts, item)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		joined := strings.Join(parts, ", ")
		return &joined
	}
	return nil
}

// number decodes an integer from a JSON number or from the digits of a string.
func number(raw json.RawMessage) *int {
	if isNull(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		n := int(math.Round(f))
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

func positiveInt(raw json.RawMessage) *int {
	n := number(raw)
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

// float decodes a percentage such as 25, 25.5, "25%" or "12,5 %".
func float(raw json.RawMessage) float64 {
	if isNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
