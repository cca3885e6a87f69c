package parking

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in currency minor units.
type Money int64

const DefaultBaseRate Money = 20000

// FeeCalculator charges BaseRate per hour, never less than BaseRate.
type FeeCalculator struct {
	BaseRate Money
}

func NewFeeCalculator(baseRate Money) FeeCalculator {
	return FeeCalculator{BaseRate: baseRate}
}

// ComputeFee applies the floor regardless of the sign of d.
func (c FeeCalculator) ComputeFee(d time.Duration) Money {
	hours := d.Seconds() / 3600
	fee := Money(math.Round(float64(c.BaseRate) * hours))
	if fee < c.BaseRate {
		return c.BaseRate
	}
	return fee
}

// FormatDuration truncates d to whole seconds and renders it as "1h 30m 0s".
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	return fmt.Sprintf("%s%dh %dm %ds", sign, total/3600, (total%3600)/60, total%60)
}

type MoneyFormatter struct {
	symbol  string
	printer *message.Printer
}

func NewMoneyFormatter(symbol string) *MoneyFormatter {
	return &MoneyFormatter{
		symbol:  symbol,
		printer: message.NewPrinter(language.English),
	}
}

// Format groups thousands, e.g. "Rp 30,000".
func (f *MoneyFormatter) Format(m Money) string {
	return f.printer.Sprintf("%s %d", f.symbol, int64(m))
}
