// 文件路径: internal/service/pricing.go
// 模块说明: 价格、周期与流量标签的格式化。金额单位为戈比，数字分组按 pricing.locale。
package service

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Translator resolves localized message templates.
type Translator interface {
	Translate(lang, key string, args ...any) string
}

// PriceFormatter renders kopek amounts such as "1 990 ₽".
type PriceFormatter struct {
	printer  *message.Printer
	currency string
}

// NewPriceFormatter uses locale for digit grouping; an unknown locale falls back to Russian.
func NewPriceFormatter(locale, currencySymbol string) *PriceFormatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.Russian
	}
	if strings.TrimSpace(currencySymbol) == "" {
		currencySymbol = "₽"
	}
	return &PriceFormatter{printer: message.NewPrinter(tag), currency: currencySymbol}
}

// Format prints whole rubles without decimals and fractional amounts with two.
func (f *PriceFormatter) Format(kopeks int64) string {
	var amount string
	if kopeks%100 == 0 {
		amount = f.printer.Sprint(number.Decimal(kopeks / 100))
	} else {
		amount = f.printer.Sprint(number.Decimal(float64(kopeks)/100, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	}
	return amount + " " + f.currency
}

// periodLabel renders "1 месяц", "3 месяца", "14 дней" using the plural rules of lang.
func periodLabel(tr Translator, lang string, days int) string {
	unit, count := "day", days
	switch {
	case days >= 360 && days%360 == 0:
		unit, count = "year", days/360
	case days >= 30 && days%30 == 0:
		unit, count = "month", days/30
	}
	form := pluralForm(lang, count)
	key := "period." + unit + "." + form
	if label := tr.Translate(lang, key, count); label != key {
		return label
	}
	return tr.Translate(lang, "period."+unit+".other", count)
}

func pluralForm(lang string, n int) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Russian
	}
	switch plural.Cardinal.MatchPlural(tag, n, 0, 0, 0, 0) {
	case plural.One:
		return "one"
	case plural.Few:
		return "few"
	case plural.Many:
		return "many"
	}
	return "other"
}
