package parser

import (
	"regexp"

	"github.com/insightdelivered/txn-verifier/internal/models"
)

// rule extracts one field of a confirmation document. Patterns are tried in
// order and the first one that matches wins. Every pattern must capture the
// field text in a group named "value".
type rule struct {
	field    string
	patterns []*regexp.Regexp
	apply    func(rec *models.TransactionRecord, value string)
}

// Confirmation documents render as "Label value" runs, e.g.
//   Payer ABEBE KEBEDE ALEMU Account 1****123
//   Transferred Amount 3,500.00 ETB
//   Reference No. FT23123ABCDE
var rules = []rule{
	{
		field: "amount",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`ETB(?P<value>[\d,]+\.\d+)`),
			regexp.MustCompile(`Amount (?P<value>[\d,]+\.\d+) ETB`),
		},
		apply: func(rec *models.TransactionRecord, v string) {
			if amt, err := parseAmount(v); err == nil {
				rec.Amount = &amt
			}
		},
	},
	{
		field:    "payer",
		patterns: []*regexp.Regexp{regexp.MustCompile(`Payer (?P<value>\w+ \w+ \w+)`)},
		apply:    func(rec *models.TransactionRecord, v string) { rec.Payer = &v },
	},
	{
		field:    "payerAccount",
		patterns: []*regexp.Regexp{regexp.MustCompile(`Payer \w+ \w+ \w+[\s\p{Zs}]*Account (?P<value>1\*+\d{3})`)},
		apply:    func(rec *models.TransactionRecord, v string) { rec.PayerAccount = &v },
	},
	{
		field:    "receiver",
		patterns: []*regexp.Regexp{regexp.MustCompile(`Receiver (?P<value>\w+ \w+ \w+)`)},
		apply:    func(rec *models.TransactionRecord, v string) { rec.Receiver = &v },
	},
	{
		field:    "receiverAccount",
		patterns: []*regexp.Regexp{regexp.MustCompile(`Receiver \w+ \w+ \w+[\s\p{Zs}]*Account (?P<value>1\*+\d{3})`)},
		apply:    func(rec *models.TransactionRecord, v string) { rec.ReceiverAccount = &v },
	},
	{
		field:    "date",
		patterns: []*regexp.Regexp{regexp.MustCompile(`Payment Date \w+ (?P<value>\w+ \w+ \w+)`)},
		apply:    func(rec *models.TransactionRecord, v string) { rec.Date = &v },
	},
	{
		field:    "reference",
		patterns: []*regexp.Regexp{regexp.MustCompile(`Reference No\. (?P<value>FT\w{10})`)},
		apply:    func(rec *models.TransactionRecord, v string) { rec.Reference = &v },
	},
	{
		field:    "reason",
		patterns: []*regexp.Regexp{regexp.MustCompile(`Reason (?P<value>\w*)`)},
		apply:    func(rec *models.TransactionRecord, v string) { rec.Reason = &v },
	},
}

// Extract parses the text of a confirmation document into a TransactionRecord.
// It never fails: fields whose pattern does not match are left nil, and the
// input is always kept verbatim in FullText.
func Extract(text string) models.TransactionRecord {
	rec := models.TransactionRecord{FullText: text}
	for _, r := range rules {
		if v, ok := firstMatch(r.patterns, text); ok {
			r.apply(&rec, v)
		}
	}
	return rec
}
