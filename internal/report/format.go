package report

import (
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders numbers the way the Brazilian dashboards show them.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a pt-BR formatter.
func NewFormatter() Formatter {
	return Formatter{p: message.NewPrinter(language.BrazilianPortuguese)}
}

// Money formats v as "R$ 1.234,56".
func (f Formatter) Money(v decimal.Decimal) string {
	return f.p.Sprintf("R$ %.2f", v.Round(2).InexactFloat64())
}

// Int formats n with thousands separators.
func (f Formatter) Int(n int64) string {
	return f.p.Sprintf("%d", n)
}

// Float formats v with prec decimals.
func (f Formatter) Float(v float64, prec int) string {
	return f.p.Sprintf("%."+strconv.Itoa(prec)+"f", v)
}

// Decimal formats v with prec decimals.
func (f Formatter) Decimal(v decimal.Decimal, prec int) string {
	return f.Float(v.Round(int32(prec)).InexactFloat64(), prec)
}

func monthLabel(year, month int) string {
	m := strconv.Itoa(month)
	if month < 10 {
		m = "0" + m
	}
	return m + "/" + strconv.Itoa(year)
}
