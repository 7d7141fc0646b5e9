package adapter

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ExtractedTracking is a tracking number spotted in an email body together
// with the carrier its format implies.
type ExtractedTracking struct {
	TrackingNumber string
	Carrier        string
}

// ExtractedReceipt is what the scanner pulls out of one order email.
type ExtractedReceipt struct {
	Retailer  string
	Total     *decimal.Decimal
	Trackings []ExtractedTracking
}

// Carrier-specific tracking number formats. Order matters: the more
// specific formats run first so a UPS number is never claimed by the
// generic digit patterns.
var carrierPatterns = []struct {
	carrier string
	re      *regexp.Regexp
}{
	{"ups", regexp.MustCompile(`\b1Z[A-HJ-NP-Z0-9]{16}\b`)},
	{"royal-mail", regexp.MustCompile(`\b[A-Z]{2}\d{9}GB\b`)},
	{"evri", regexp.MustCompile(`\b[CHT]\d{15}\b`)},
	{"dpd", regexp.MustCompile(`\b15\d{12}\b`)},
}

var (
	// "Total: £42.50", "Order total £1,042.50", "Grand Total: GBP 9.99"
	totalRe = regexp.MustCompile(`(?i)(?:grand\s+total|order\s+total|total)\s*:?\s*(?:£|GBP\s*)?(\d{1,3}(?:,\d{3})*\.\d{2})`)

	fromAddressRe = regexp.MustCompile(`<([^@>]+)@([^>]+)>`)
	htmlTagRe     = regexp.MustCompile(`<[^>]*>`)
)

// ExtractTrackingNumbers scans text for tracking numbers of the carriers we
// know how to poll. Duplicates are collapsed, first occurrence wins.
func ExtractTrackingNumbers(text string) []ExtractedTracking {
	text = stripHTML(text)
	seen := make(map[string]bool)
	var found []ExtractedTracking
	for _, p := range carrierPatterns {
		for _, match := range p.re.FindAllString(text, -1) {
			if seen[match] {
				continue
			}
			seen[match] = true
			found = append(found, ExtractedTracking{TrackingNumber: match, Carrier: p.carrier})
		}
	}
	return found
}

// ExtractReceipt pulls retailer, order total and any tracking numbers from
// one message. Retailer falls back to the sender's domain when the display
// name is empty.
func ExtractReceipt(msg *MailMessage) ExtractedReceipt {
	receipt := ExtractedReceipt{
		Retailer:  retailerFromSender(msg.From),
		Trackings: ExtractTrackingNumbers(msg.Body),
	}
	if m := totalRe.FindStringSubmatch(stripHTML(msg.Body)); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if total, err := decimal.NewFromString(raw); err == nil {
			receipt.Total = &total
		}
	}
	return receipt
}

// retailerFromSender turns `"Amazon.co.uk" <order-update@amazon.co.uk>` into
// "Amazon.co.uk", or the bare domain when there is no display name.
func retailerFromSender(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if idx := strings.Index(from, "<"); idx > 0 {
		name := strings.Trim(strings.TrimSpace(from[:idx]), `"`)
		if name != "" {
			return name
		}
	}
	if m := fromAddressRe.FindStringSubmatch(from); m != nil {
		return m[2]
	}
	if at := strings.Index(from, "@"); at >= 0 {
		return strings.TrimSpace(from[at+1:])
	}
	return from
}

func stripHTML(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	return htmlTagRe.ReplaceAllString(text, " ")
}
