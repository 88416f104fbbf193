package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// merchantMaxLen bounds the merchant label taken from the first line.
const merchantMaxLen = 50

// amountRule pairs a candidate pattern with the normalizer for the decimal
// convention it matches. Rules are tried in order and the first match that
// survives validation wins.
type amountRule struct {
	pattern   *regexp.Regexp
	normalize func(string) string
}

// brazilianDecimal normalizes "1.234,56" style amounts: strip thousands
// dots, then turn the decimal comma into a dot.
func brazilianDecimal(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.Replace(s, ",", ".", 1)
}

// mixedDecimal handles label-prefixed amounts where the decimal separator
// may be either a comma or a dot. A comma is always decimal here; a dot with
// no comma present is kept as the decimal separator.
func mixedDecimal(s string) string {
	if strings.Contains(s, ",") {
		return brazilianDecimal(s)
	}
	return s
}

// dotDecimal keeps the amount as-is ("123.45").
func dotDecimal(s string) string {
	return s
}

var amountRules = []amountRule{
	{regexp.MustCompile(`R\$\s*(\d{1,3}(?:\.\d{3})*,\d{2})`), brazilianDecimal}, // R$ 1.234,56
	{regexp.MustCompile(`R\$\s*(\d+,\d{2})`), brazilianDecimal},                 // R$ 123,45
	{regexp.MustCompile(`R\$\s*(\d+\.\d{2})`), dotDecimal},                      // R$ 123.45
	{regexp.MustCompile(`(?i)TOTAL[:\s]+R?\$?\s*(\d+[.,]\d{2})`), mixedDecimal}, // TOTAL: 123,45
	{regexp.MustCompile(`(?i)VALOR[:\s]+R?\$?\s*(\d+[.,]\d{2})`), mixedDecimal}, // VALOR: 123,45
	{regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*,\d{2})`), brazilianDecimal},       // 1.234,56 (no marker)
}

// parseCents converts a normalized "1234.56" amount into integer centavos,
// avoiding binary floating point on the money path.
func parseCents(s string) (int64, bool) {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 2 {
		return 0, false
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, false
	}
	return w*100 + f, true
}

// ExtractAmount scans recognized text for a monetary amount, trying each
// candidate pattern in priority order. The first match that normalizes to a
// strictly positive value wins; a failed validation falls through to the
// next rule.
func ExtractAmount(text string) (int64, bool) {
	for _, rule := range amountRules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		cents, ok := parseCents(rule.normalize(m[1]))
		if ok && cents > 0 {
			return cents, true
		}
	}
	return 0, false
}

// dateRule captures day, month and year groups in the order they appear in
// the text. Disambiguation happens after the match: a four-digit first group
// means year-first.
var dateRules = []*regexp.Regexp{
	regexp.MustCompile(`(\d{2})[/-](\d{2})[/-](\d{4})`),               // dd/mm/yyyy or dd-mm-yyyy
	regexp.MustCompile(`(\d{4})[/-](\d{2})[/-](\d{2})`),               // yyyy/mm/dd or yyyy-mm-dd
	regexp.MustCompile(`(?i)DATA[:\s]+(\d{2})[/-](\d{2})[/-](\d{4})`), // DATA: dd/mm/yyyy
}

// ExtractDate scans recognized text for a calendar date and normalizes it to
// YYYY-MM-DD regardless of the input order. Calendar validity is not
// checked; a nonsense day like 31/02 passes through unchanged.
func ExtractDate(text string) (string, bool) {
	for _, pattern := range dateRules {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		p1, p2, p3 := m[1], m[2], m[3]
		if len(p1) == 4 {
			// Already year-first.
			return p1 + "-" + p2 + "-" + p3, true
		}
		// Day-first: reorder to year-month-day.
		return p3 + "-" + p2 + "-" + p1, true
	}
	return "", false
}

// ExtractMerchant takes the first substantive line of the text as the
// merchant label: lines whose trimmed length is three characters or fewer
// are skipped, and the result is trimmed and bounded to 50 characters.
func ExtractMerchant(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if utf8.RuneCountInString(trimmed) <= 3 {
			continue
		}
		runes := []rune(trimmed)
		if len(runes) > merchantMaxLen {
			trimmed = string(runes[:merchantMaxLen])
		}
		return trimmed, true
	}
	return "", false
}

// Extract runs all three field extractors independently against the same
// recognized text. It cannot fail: extraction failure of one field never
// blocks the others, and every field degrades to absent on no match.
func Extract(text string) *ExtractedReceipt {
	result := &ExtractedReceipt{RawText: text}

	if cents, ok := ExtractAmount(text); ok {
		result.AmountCents = &cents
	}
	if date, ok := ExtractDate(text); ok {
		result.Date = &date
	}
	if merchant, ok := ExtractMerchant(text); ok {
		result.Merchant = &merchant
	}

	return result
}
