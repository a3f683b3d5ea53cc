package labs

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("lab result not found")

// CatalogEntry is one unit variant of a known analysis. Factor converts a
// value in Unit into StandardUnit.
type CatalogEntry struct {
	ID                int64
	Group             string
	Name              string
	Unit              string
	Reference         string
	Factor            float64
	StandardUnit      string
	StandardReference string
}

// Result is a stored measurement, always in the standard unit.
type Result struct {
	ID         int64
	TelegramID int64
	Name       string
	Group      string
	Units      string
	Reference  string
	Value      float64
	Date       time.Time
	CreatedAt  time.Time
}

func (r Result) Status() Status {
	return Classify(r.Value, r.Reference)
}
