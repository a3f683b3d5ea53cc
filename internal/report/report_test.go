package report

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func availableFont(t *testing.T) string {
	t.Helper()
	for _, p := range defaultFonts {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Skip("DejaVuSans is not installed")
	return ""
}

func TestLabTable_MissingFont(t *testing.T) {
	r := &Renderer{fonts: []string{"/nonexistent/font.ttf"}}
	_, err := r.LabTable("x", nil)
	assert.True(t, errors.Is(err, ErrFontNotFound))
}

func TestLabTable_Renders(t *testing.T) {
	r := NewRenderer(availableFont(t))

	rows := make([]LabRow, 0, 80)
	for i := 0; i < 80; i++ {
		rows = append(rows, LabRow{
			Name:      "Холестерин общий",
			Last:      Measurement{Value: "6.1", Date: "12.05.2024", Tone: Bad},
			Previous:  &Measurement{Value: "4.9", Date: "01.02.2024", Tone: Good},
			Reference: "3.0-5.2",
			Units:     "ммоль/л",
		})
	}
	rows = append(rows, LabRow{Name: "СОЭ", Last: Measurement{Value: "7", Date: "12.05.2024"}})

	data, err := r.LabTable("Результаты анализов", rows)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestNewRenderer_PrefersConfiguredFont(t *testing.T) {
	r := NewRenderer("/opt/fonts/custom.ttf")
	require.NotEmpty(t, r.fonts)
	assert.Equal(t, "/opt/fonts/custom.ttf", r.fonts[0])
	assert.Len(t, r.fonts, len(defaultFonts)+1)
}

func TestRowHeight(t *testing.T) {
	assert.Equal(t, lineHeight+2*padding, rowHeight([][]string{{"a"}, nil}))
	assert.Equal(t, 3*lineHeight+2*padding, rowHeight([][]string{{"a"}, {"a", "b", "c"}}))
}
