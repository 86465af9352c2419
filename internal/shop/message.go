package shop

import (
	"fmt"
	"net/url"
	"strings"

	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/money"
)

// OrderSubject builds the mail subject for a batch order.
func OrderSubject(batchName string) string {
	return "Bestelling Akkervarken.be - " + batchName
}

// BuildOrderBody renders the plain-text order message: greeting, itemized
// lines, total, pickup information, optional notes, and sign-off.
func BuildOrderBody(sum Summary, form Form) string {
	var b strings.Builder
	b.WriteString("Beste Akkervarken.be,\n\n")
	b.WriteString("Hierbij mijn bestelling:\n\n")
	b.WriteString("Producten:\n")

	for _, line := range sum.Lines {
		priceInfo := ""
		if line.ExpectedPrice > 0 {
			// Sold by weight: show the per-kg rate next to the line.
			priceInfo = fmt.Sprintf(" @ %s/kg", money.FormatEUR(line.UnitPrice))
		}
		b.WriteString(fmt.Sprintf("- %s %s%s - %s\n", formatQty(line.Quantity), line.Name, priceInfo, line.DisplayTotal))
	}

	b.WriteString(fmt.Sprintf("\nTotaal: %s (%s stuks)\n\n", sum.DisplayTotal, formatCount(sum.TotalQuantity)))

	if sum.BatchType == catalog.BatchFreezer {
		b.WriteString(fmt.Sprintf("Ophalen: %s\n\n", sum.PickupText))
	} else {
		b.WriteString("Ophaalmomenten:\n")
		for _, slot := range sum.PickupSlots {
			b.WriteString(fmt.Sprintf("  - %s om %s\n", slot.Date, slot.Time))
		}
		b.WriteString("\n")
	}

	b.WriteString("Betaling bij afhaling.\n\n")

	if form.Notes != "" {
		b.WriteString(fmt.Sprintf("Opmerkingen:\n%s\n\n", form.Notes))
	}

	b.WriteString("Graag bevestiging van deze bestelling.\n\n")
	b.WriteString("Met vriendelijke groeten,\n")
	b.WriteString(form.Name)
	if form.Phone != "" {
		b.WriteString("\n" + form.Phone)
	}
	return b.String()
}

// MailtoURL builds the mail-client URI carrying the order.
func MailtoURL(email, subject, body string) string {
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", email, escape(subject), escape(body))
}

// WhatsAppURL builds the chat deep link carrying the order text. The phone
// number is reduced to digits as wa.me requires.
func WhatsAppURL(phone, body string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", digitsOnly(phone), escape(body))
}

// escape percent-encodes for URI query components. url.QueryEscape encodes
// spaces as "+", which mail clients render literally, so swap them back.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
