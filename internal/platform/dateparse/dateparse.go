// Package dateparse turns the date expressions users type into a chat
// (dd.mm.yyyy, "сегодня", "12 мая 2024", "2 недели назад", ...) into
// calendar dates.
package dateparse

import (
	"errors"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// Layout is the display and strict input format.
const Layout = "02.01.2006"

// ISO is used for callback payloads and session values.
const ISO = "2006-01-02"

var (
	ErrUnrecognized = errors.New("unrecognized date")
	ErrFuture       = errors.New("date is in the future")
)

var numericLayouts = []string{"2.1.2006", "2/1/2006", "2006-01-02", "2.1.06"}

var relativeWords = map[string]int{
	"сегодня":   0,
	"today":     0,
	"вчера":     -1,
	"yesterday": -1,
	"позавчера": -2,
}

// Strict parses d.m.yyyy only.
func Strict(text string) (time.Time, error) {
	t, err := time.Parse("2.1.2006", strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, ErrUnrecognized
	}
	return t, nil
}

// Parse accepts anything a person would type for a past date in Russian or
// English: relative words and expressions, numeric dates (day first) and
// month names. Results are midnight UTC; now anchors relative forms and
// dates after today are rejected with ErrFuture.
func Parse(text string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, ErrUnrecognized
	}

	today := midnight(now)
	if offset, ok := relativeWords[s]; ok {
		return today.AddDate(0, 0, offset), nil
	}

	var t time.Time
	for _, layout := range numericLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t = parsed
			break
		}
	}

	if t.IsZero() {
		cfg := &dps.Configuration{
			Languages:           []string{"ru", "en"},
			CurrentTime:         now.UTC(),
			DateOrder:           dps.DMY,
			PreferredDateSource: dps.Past,
		}
		dt, err := dps.Parse(cfg, s)
		if err != nil || dt.Time.IsZero() {
			return time.Time{}, ErrUnrecognized
		}
		t = midnight(dt.Time)
	}

	if t.After(today) {
		return time.Time{}, ErrFuture
	}
	return t, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Format renders t in the display layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}
