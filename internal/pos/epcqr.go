package pos

import (
	"strings"

	"akkervarken.be/farmshop/internal/money"
)

// Payment holds the beneficiary account details for the payment QR.
type Payment struct {
	IBAN        string
	BIC         string
	Beneficiary string
	Remittance  string
}

// QRPayload builds the EPC069-12 payload for a SEPA credit transfer QR
// covering the sale total. The payload is exactly twelve lines; scanning
// banking apps require the fixed header, an amount as "EUR<2dp>", and the
// empty purpose and trailer lines.
func (s *Sale) QRPayload(p Payment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return "", ErrEmptySale
	}

	// ddmmyy + hhmm, e.g. POS0703261715.
	reference := "POS" + s.now().Format("0201061504")
	lines := []string{
		"BCD",
		"002",
		"1",
		"SCT",
		p.BIC,
		p.Beneficiary,
		p.IBAN,
		money.EPCAmount(s.total()),
		"", // purpose
		reference,
		p.Remittance,
		"", // trailer
	}
	return strings.Join(lines, "\n"), nil
}
