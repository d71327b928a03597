package money

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cents is a fixed-point monetary amount in minor units. All pricing arithmetic
// stays in integer cents; floats never enter the calculation.
type Cents int64

const secondsPerDay = 24 * 60 * 60

// PriceFor computes rate-per-day times the exact fractional day count of d,
// rounded half up to the nearest cent. Sub-second precision is not carried:
// booking intervals are date-times, not high-resolution instants.
func PriceFor(ratePerDay Cents, d time.Duration) Cents {
	seconds := int64(d / time.Second)
	if seconds <= 0 || ratePerDay <= 0 {
		return 0
	}
	total := int64(ratePerDay) * seconds
	return Cents((total + secondsPerDay/2) / secondsPerDay)
}

// ApplyDiscount reduces amount by percent (0-100), rounding half up.
func ApplyDiscount(amount Cents, percent int64) Cents {
	if percent <= 0 {
		return amount
	}
	if percent >= 100 {
		return 0
	}
	off := (int64(amount)*percent + 50) / 100
	return amount - Cents(off)
}

// String renders the amount as a plain decimal, e.g. 4500 -> "45.00".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders cents as a decimal string so totals survive JSON
// round-trips without float precision loss.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.String())), nil
}

func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse converts a decimal string such as "45.00", "45.5" or "45" into cents.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty monetary amount")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid monetary amount %q", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid monetary amount %q", s)
	}

	v := units*100 + cents
	if negative {
		v = -v
	}
	return Cents(v), nil
}
