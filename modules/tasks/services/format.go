package services

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// formatMoney renders d as en-US currency, e.g. $31,250.00.
func formatMoney(d decimal.Decimal) string {
	return moneyPrinter.Sprintf("$%.2f", d.Round(2).InexactFloat64())
}
