// Package localization renders prices for display. The backend and
// providers speak ISO currency codes; hosts want "$9.99".
package localization

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/helioapps/purchasekit/model"
)

var symbolByCurrency = map[string]string{
	"AED": "د.إ",
	"ARS": "$",
	"AUD": "$",
	"BRL": "R$",
	"CAD": "$",
	"CHF": "CHF",
	"CNY": "¥",
	"CZK": "Kč",
	"DKK": "kr",
	"EUR": "€",
	"GBP": "£",
	"HKD": "$",
	"HUF": "Ft",
	"IDR": "Rp",
	"ILS": "₪",
	"INR": "₹",
	"JPY": "¥",
	"KRW": "₩",
	"MXN": "$",
	"MYR": "RM",
	"NOK": "kr",
	"NZD": "$",
	"PHP": "₱",
	"PLN": "zł",
	"RUB": "₽",
	"SAR": "﷼",
	"SEK": "kr",
	"SGD": "$",
	"THB": "฿",
	"TRY": "₺",
	"TWD": "NT$",
	"UAH": "₴",
	"USD": "$",
	"VND": "₫",
	"ZAR": "R",
}

// Currencies whose minor unit is zero; everything else renders two
// fraction digits.
var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {},
	"KRW": {},
	"VND": {},
}

// Symbol returns the display symbol for an ISO 4217 code, falling back
// to the code itself for currencies without a well-known symbol.
func Symbol(currencyCode string) string {
	if symbol, ok := symbolByCurrency[currencyCode]; ok {
		return symbol
	}
	return currencyCode
}

// ParseLanguage resolves a BCP 47 language code, defaulting to English
// when the code is empty or malformed.
func ParseLanguage(code string) language.Tag {
	if code == "" {
		return language.English
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.English
	}
	return tag
}

// FormatPrice renders amount with the currency's symbol using the
// locale's digit grouping, e.g. "$1,299.99".
func FormatPrice(amount decimal.Decimal, currencyCode string, lang language.Tag) string {
	digits := 2
	if _, ok := zeroDecimalCurrencies[currencyCode]; ok {
		digits = 0
	}

	value, _ := amount.Float64()
	printer := message.NewPrinter(lang)
	formatted := printer.Sprint(number.Decimal(value,
		number.MinFractionDigits(digits),
		number.MaxFractionDigits(digits),
	))

	return Symbol(currencyCode) + formatted
}

// DisplayPrice renders a product's price in its own currency.
func DisplayPrice(p model.Product, lang language.Tag) string {
	return FormatPrice(p.Price, p.CurrencyCode, lang)
}
