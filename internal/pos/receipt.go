package pos

import (
	"fmt"
	"strings"

	"akkervarken.be/farmshop/internal/money"
)

// Receipt renders the plain-text counter receipt: header, date line,
// itemized lines, and the VAT-inclusive total.
func (s *Sale) Receipt() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return "", ErrEmptySale
	}

	var b strings.Builder
	b.WriteString("Akkervarken.be\n")
	b.WriteString("Hoevewinkel\n")
	b.WriteString(s.now().Format("02/01/2006 15:04") + "\n")
	b.WriteString("--------------------------------\n")
	for _, id := range s.order {
		line := s.lines[id]
		b.WriteString(line.Product.Name + "\n")
		b.WriteString(fmt.Sprintf("  %s = %s\n", describeQty(*line), money.FormatEUR(line.Subtotal())))
	}
	b.WriteString("--------------------------------\n")
	b.WriteString(fmt.Sprintf("TOTAAL (incl. btw): %s\n", money.FormatEUR(s.total())))
	b.WriteString("\nBedankt en tot ziens!\n")
	return b.String(), nil
}
