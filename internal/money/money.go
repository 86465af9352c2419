package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var dutch = message.NewPrinter(language.Dutch)

// ParseQuantity normalizes buyer-entered quantity input. Both "," and "." are
// accepted as decimal separator. Non-numeric, negative, or zero input yields 0.
func ParseQuantity(raw string) float64 {
	qty, err := ParseQuantityStrict(raw)
	if err != nil {
		return 0
	}
	return qty
}

// ParseQuantityStrict parses like ParseQuantity but reports non-numeric input
// instead of folding it into 0. Empty, zero, and negative input still
// normalize to 0 (meaning "clear the line").
func ParseQuantityStrict(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	qty, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return 0, fmt.Errorf("money: invalid quantity %q", raw)
	}
	if qty <= 0 {
		return 0, nil
	}
	return qty, nil
}

// FormatEUR renders an amount the way the shop displays prices: comma as
// decimal separator, two decimals. Example: FormatEUR(10.5) => "€10,50".
func FormatEUR(amount float64) string {
	return dutch.Sprintf("€%.2f", amount)
}

// EPCAmount renders an amount for line 8 of an EPC QR payload.
// Example: EPCAmount(10) => "EUR10.00".
func EPCAmount(amount float64) string {
	return "EUR" + strconv.FormatFloat(RoundCents(amount), 'f', 2, 64)
}

// FormatWeight renders a weight in kilograms with a comma separator and no
// trailing zeros. Example: FormatWeight(0.5) => "0,5".
func FormatWeight(kg float64) string {
	return strings.Replace(strconv.FormatFloat(kg, 'f', -1, 64), ".", ",", 1)
}

// RoundCents rounds to display precision (2 decimals).
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
