package util

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// dots as thousands separators, as Vietnamese shops print prices
var currencyPrinter = message.NewPrinter(language.German)

// FormatVND renders an integer amount as "2.500.000 ₫"
func FormatVND(amount int64) string {
	return currencyPrinter.Sprintf("%d", amount) + " ₫"
}
