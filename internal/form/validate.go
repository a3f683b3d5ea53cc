package form

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"medcard-bot/internal/platform/dateparse"
)

// StrictDate accepts dd.mm.yyyy and stores the date as yyyy-mm-dd.
func StrictDate(text string) (string, error) {
	t, err := dateparse.Strict(text)
	if err != nil {
		return "", errors.New("Неверный формат даты. Используйте ДД.ММ.ГГГГ, например 05.03.2024.")
	}
	return t.Format(dateparse.ISO), nil
}

// NaturalDate accepts everything dateparse.Parse understands, relative to now().
func NaturalDate(now func() time.Time) func(string) (string, error) {
	return func(text string) (string, error) {
		t, err := dateparse.Parse(text, now())
		if errors.Is(err, dateparse.ErrFuture) {
			return "", errors.New("Дата не может быть в будущем.")
		}
		if err != nil {
			return "", errors.New("Не удалось распознать дату. Примеры: 05.03.2024, вчера, 12 мая 2024.")
		}
		return t.Format(dateparse.ISO), nil
	}
}

// ParseNumber reads a decimal with either a dot or a comma separator.
func ParseNumber(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(text), ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a number")
	}
	return v, nil
}

// PositiveNumber accepts numbers above zero.
func PositiveNumber(text string) (string, error) {
	v, err := ParseNumber(text)
	if err != nil || v <= 0 {
		return "", errors.New("Введите положительное число, например 72.5.")
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// NonNegativeNumber accepts zero and above.
func NonNegativeNumber(text string) (string, error) {
	v, err := ParseNumber(text)
	if err != nil || v < 0 {
		return "", errors.New("Введите число не меньше нуля, например 5,6.")
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// Text accepts non-empty text of at most max runes.
func Text(max int) func(string) (string, error) {
	return func(text string) (string, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errors.New(msgEmpty)
		}
		if utf8.RuneCountInString(text) > max {
			return "", errors.New("Слишком длинный текст, максимум " + strconv.Itoa(max) + " символов.")
		}
		return text, nil
	}
}
