package payments

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders a cent amount as "CUR 1,234.56" for human-facing
// output such as reminder emails.
func FormatAmount(cents int64, currency string) string {
	value := number.Decimal(float64(cents)/100,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	)
	return printer.Sprintf("%s %v", currency, value)
}
