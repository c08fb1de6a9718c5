package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var inrPrinter = message.NewPrinter(language.English)

// FormatINR renders a rupee amount with digit grouping, e.g. ₹25,000
func FormatINR(amount int) string {
	return inrPrinter.Sprintf("₹%d", amount)
}
