package documents

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// formatAmount renders a monetary value for the business locale, with
// the currency symbol when the ISO code is known
func formatAmount(locale, code string, v float64) string {
	if locale == "" {
		locale = "es-DO"
	}
	p := message.NewPrinter(language.Make(locale))
	dec := number.Decimal(v,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2))

	if unit, err := currency.ParseISO(code); err == nil {
		return p.Sprintf("%v%v", currency.Symbol(unit), dec)
	}
	return p.Sprintf("%v", dec)
}
