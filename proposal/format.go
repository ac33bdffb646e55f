package proposal

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// DateLayout is the en-US short date, e.g. 3/7/2025.
	DateLayout = "1/2/2006"

	notAvailable = "N/A"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders an amount as en-US dollars with grouping, e.g. $1,500.00.
func FormatPrice(p decimal.Decimal) string {
	f, _ := p.Round(2).Abs().Float64()
	s := printer.Sprintf("%v", number.Decimal(f, number.Scale(2)))
	if p.Round(2).IsNegative() {
		return "-$" + s
	}
	return "$" + s
}

// FormatDimensions renders "{w} x {h}", or N/A when either side is unknown.
func FormatDimensions(width, height *float64) string {
	if width == nil || height == nil {
		return notAvailable
	}
	return formatNumber(*width) + " x " + formatNumber(*height)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func FormatAvailability(available bool) string {
	if available {
		return "Available"
	}
	return "Not Available"
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
