package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// TransactionIDPattern matches a bank transaction id anywhere in a string.
var TransactionIDPattern = regexp.MustCompile(`FT\w{10}`)

// FindTransactionID returns the first transaction id found in text.
func FindTransactionID(text string) (string, bool) {
	m := TransactionIDPattern.FindString(text)
	return m, m != ""
}

// parseAmount converts a comma-grouped string like "1,234.56" to a float64.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

// firstMatch returns the "value" group of the first pattern that matches text.
func firstMatch(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if i := re.SubexpIndex("value"); i > 0 {
			return m[i], true
		}
	}
	return "", false
}
