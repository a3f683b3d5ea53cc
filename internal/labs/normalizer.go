package labs

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Normalize converts a raw value into the standard unit, rounded to two
// decimals.
func Normalize(raw, factor float64) float64 {
	return math.Round(raw*factor*100) / 100
}

var rangeSep = regexp.MustCompile(`[^0-9,.]+`)

// ParseRange extracts the first two numbers of a free-text reference such as
// "60-80", "3,9 - 5,5" or "от 4 до 9". ok is false when fewer than two
// numbers can be read.
func ParseRange(ref string) (lo, hi float64, ok bool) {
	var nums []float64
	for _, tok := range rangeSep.Split(ref, -1) {
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", "."), 64)
		if err != nil {
			return 0, 0, false
		}
		nums = append(nums, v)
		if len(nums) == 2 {
			return nums[0], nums[1], true
		}
	}
	return 0, 0, false
}

type Status int

const (
	Unknown Status = iota
	InRange
	OutOfRange
)

// Classify checks value against an inclusive reference range.
func Classify(value float64, ref string) Status {
	if math.IsNaN(value) {
		return Unknown
	}
	lo, hi, ok := ParseRange(ref)
	if !ok {
		return Unknown
	}
	if lo <= value && value <= hi {
		return InRange
	}
	return OutOfRange
}

func (s Status) Marker() string {
	switch s {
	case InRange:
		return "🟢"
	case OutOfRange:
		return "🔴"
	}
	return ""
}

// FormatValue prints a value without trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
