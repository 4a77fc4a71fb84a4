package receipt

import (
	"strings"

	"golang.org/x/text/width"
)

// Legal-entity suffixes and prefixes that bank statements and OCR output
// disagree on. Stripped before any similarity comparison.
var legalAffixes = []string{
	"株式会社", "(株)", "㈱", "カ)",
	"合同会社", "有限会社", "(有)",
	"CO., LTD.", "CO.,LTD.", "CO LTD", "LTD.", "LTD",
	"INC.", "INC", "CORP.", "CORP", "K.K.", "KK",
	"GMBH", "LLC", "L.L.C.",
}

// Bank-transfer prefixes that carry no vendor information.
var transferPrefixes = []string{
	"振込 ", "フリコミ ", "Vデビット ", "カード利用 ",
}

// NormalizeVendor canonicalizes vendor text for comparison: full-width
// characters are folded to their half-width forms, legal-entity affixes and
// transfer prefixes are removed, and whitespace is collapsed away. The
// result is upper-case. Empty input normalizes to the empty string.
func NormalizeVendor(s string) string {
	if s == "" {
		return ""
	}

	n := width.Fold.String(s)
	n = strings.ToUpper(strings.TrimSpace(n))

	for _, p := range transferPrefixes {
		upper := strings.ToUpper(width.Fold.String(p))
		if strings.HasPrefix(n, upper) {
			n = strings.TrimSpace(n[len(upper):])
			break
		}
	}

	for _, affix := range legalAffixes {
		n = strings.ReplaceAll(n, strings.ToUpper(affix), "")
	}

	// Collapse all whitespace; Japanese vendor names are compared without it.
	n = strings.Join(strings.Fields(n), "")

	return n
}
