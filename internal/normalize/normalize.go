// Package normalize converts FileMaker's loosely formatted field values
// into canonical representations. All functions are pure: identical
// input always yields identical output, and nothing here touches shared
// state. Unparseable input normalizes to nil (or zero for numerics)
// rather than a sentinel that could be mistaken for real data.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical calendar date form (ISO).
	DateLayout = "2006-01-02"
	// ClockLayout is the canonical 24-hour time form.
	ClockLayout = "15:04:05"
)

var dateLayouts = []string{
	"1/2/2006", // FileMaker's usual MM/DD/YYYY, with or without zero padding
	"2006-01-02",
	"1-2-2006",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04 pm",
}

// Date converts a FileMaker date string to YYYY-MM-DD. Empty input,
// the 0000-00-00 placeholder, and anything unparseable become nil.
func Date(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == "0000-00-00" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			out := t.Format(DateLayout)
			return &out
		}
	}
	return nil
}

// Clock converts a FileMaker time string to HH:MM:SS. Empty or
// unparseable input becomes nil.
func Clock(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			out := t.Format(ClockLayout)
			return &out
		}
	}
	return nil
}

// Int parses a loose numeric field ("10", " 10 ", "10.0") to an int.
// Anything unparseable is 0, matching how the source treats blank counts.
func Int(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// Float parses a loose decimal field, tolerating currency prefixes and
// thousands separators ("$1,250.00"). Anything unparseable is 0.
func Float(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
