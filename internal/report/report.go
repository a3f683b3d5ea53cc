// Package report renders lab result tables as PDF.
package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/signintech/gopdf"
)

var ErrFontNotFound = errors.New("no usable font for PDF")

// DejaVuSans covers Cyrillic. Locations differ between distributions.
var defaultFonts = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

type Tone int

const (
	Neutral Tone = iota
	Good
	Bad
)

type Measurement struct {
	Value string
	Date  string
	Tone  Tone
}

type LabRow struct {
	Name      string
	Last      Measurement
	Previous  *Measurement
	Reference string
	Units     string
}

type Renderer struct {
	fonts []string
}

// NewRenderer tries fontPath first, then the usual system locations.
func NewRenderer(fontPath string) *Renderer {
	fonts := make([]string, 0, len(defaultFonts)+1)
	if fontPath != "" {
		fonts = append(fonts, fontPath)
	}
	return &Renderer{fonts: append(fonts, defaultFonts...)}
}

const (
	fontName   = "DejaVu"
	margin     = 30.0
	lineHeight = 12.0
	padding    = 4.0
	fontSize   = 9
)

var (
	headers = []string{"Анализ", "Последний результат (дата)", "Предыдущий результат (дата)", "Референс", "Ед. изм."}
	widths  = []float64{125, 130, 130, 85, 65}
)

// LabTable renders rows under title, repeating the header on every page.
func (r *Renderer) LabTable(title string, rows []LabRow) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := r.loadFont(pdf); err != nil {
		return nil, err
	}

	pdf.AddPage()
	if err := pdf.SetFont(fontName, "", 14); err != nil {
		return nil, err
	}
	pdf.SetXY(margin, margin)
	if err := pdf.Cell(nil, title); err != nil {
		return nil, err
	}
	pdf.SetY(margin + 24)

	if err := pdf.SetFont(fontName, "", fontSize); err != nil {
		return nil, err
	}
	t := &table{pdf: pdf}
	if err := t.header(); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := t.row(row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range r.fonts {
		if err := pdf.AddTTFFont(fontName, path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrFontNotFound, lastErr)
	}
	return ErrFontNotFound
}

type table struct {
	pdf *gopdf.GoPdf
}

func (t *table) pageBottom() float64 {
	return gopdf.PageSizeA4.H - margin
}

func (t *table) header() error {
	lines := make([][]string, len(headers))
	for i, h := range headers {
		split, err := t.pdf.SplitText(h, widths[i]-2*padding)
		if err != nil {
			return err
		}
		lines[i] = split
	}
	h := rowHeight(lines)

	t.pdf.SetFillColor(220, 220, 220)
	x, y := margin, t.pdf.GetY()
	for i := range headers {
		if err := t.pdf.Rectangle(x, y, x+widths[i], y+h, "FD", 0, 0); err != nil {
			return err
		}
		if err := t.text(x, y, lines[i], Neutral); err != nil {
			return err
		}
		x += widths[i]
	}
	t.pdf.SetY(y + h)
	return nil
}

func (t *table) row(row LabRow) error {
	prev := []string{"—"}
	prevTone := Neutral
	if row.Previous != nil {
		prev = []string{row.Previous.Value, "(" + row.Previous.Date + ")"}
		prevTone = row.Previous.Tone
	}

	cells := []struct {
		text string
		// pre-split lines, the first one toned
		lines []string
		tone  Tone
	}{
		{text: row.Name},
		{lines: []string{row.Last.Value, "(" + row.Last.Date + ")"}, tone: row.Last.Tone},
		{lines: prev, tone: prevTone},
		{text: orDash(row.Reference)},
		{text: orDash(row.Units)},
	}

	lines := make([][]string, len(cells))
	for i, c := range cells {
		if c.lines != nil {
			lines[i] = c.lines
			continue
		}
		split, err := t.pdf.SplitText(c.text, widths[i]-2*padding)
		if err != nil {
			return err
		}
		lines[i] = split
	}
	h := rowHeight(lines)

	if t.pdf.GetY()+h > t.pageBottom() {
		t.pdf.AddPage()
		t.pdf.SetY(margin)
		if err := t.header(); err != nil {
			return err
		}
	}

	x, y := margin, t.pdf.GetY()
	for i := range cells {
		if err := t.pdf.Rectangle(x, y, x+widths[i], y+h, "D", 0, 0); err != nil {
			return err
		}
		if err := t.text(x, y, lines[i], cells[i].tone); err != nil {
			return err
		}
		x += widths[i]
	}
	t.pdf.SetY(y + h)
	return nil
}

// text writes lines into the cell at x, y. Only the first line is toned so
// the date under a value stays black.
func (t *table) text(x, y float64, lines []string, tone Tone) error {
	for i, l := range lines {
		if i == 0 {
			setTone(t.pdf, tone)
		} else {
			setTone(t.pdf, Neutral)
		}
		t.pdf.SetXY(x+padding, y+padding+float64(i)*lineHeight)
		if err := t.pdf.Cell(nil, l); err != nil {
			return err
		}
	}
	setTone(t.pdf, Neutral)
	return nil
}

func setTone(pdf *gopdf.GoPdf, tone Tone) {
	switch tone {
	case Good:
		pdf.SetTextColor(0, 128, 0)
	case Bad:
		pdf.SetTextColor(200, 0, 0)
	default:
		pdf.SetTextColor(0, 0, 0)
	}
}

func rowHeight(lines [][]string) float64 {
	n := 1
	for _, l := range lines {
		if len(l) > n {
			n = len(l)
		}
	}
	return float64(n)*lineHeight + 2*padding
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
