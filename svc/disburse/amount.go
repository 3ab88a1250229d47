package disburse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scale is the number of decimal places kept for disbursed amounts.
const Scale = 8

const unitsPerWhole = 100_000_000

var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a fixed-point quantity with eight decimal places, stored as an
// integer number of 1e-8 units. It encodes as a decimal string such as
// "0.00010000" so no precision is lost in JSON or YAML snapshots.
type Amount int64

// AmountFromUnits builds an Amount from 1e-8 units.
func AmountFromUnits(units int64) Amount {
	return Amount(units)
}

// ParseAmount parses a decimal string. Digits beyond the eighth decimal place
// are rounded half away from zero.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	roundUp := false
	if len(frac) > Scale {
		roundUp = frac[Scale] >= '5'
		frac = frac[:Scale]
	}
	frac += strings.Repeat("0", Scale-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > math.MaxInt64/unitsPerWhole-1 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)

	units := w*unitsPerWhole + f
	if roundUp {
		units++
	}
	if neg {
		units = -units
	}
	return Amount(units), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeAmount converts v to an Amount. converted reports that v was not
// already an Amount and had to be reformatted to eight decimal places, which
// callers log as a warning.
func NormalizeAmount(v any) (a Amount, converted bool, err error) {
	switch x := v.(type) {
	case Amount:
		return x, false, nil
	case string:
		a, err = ParseAmount(x)
	case float64:
		a, err = ParseAmount(strconv.FormatFloat(x, 'f', Scale, 64))
	case float32:
		a, err = ParseAmount(strconv.FormatFloat(float64(x), 'f', Scale, 32))
	case int:
		a, err = ParseAmount(strconv.Itoa(x))
	case int64:
		a, err = ParseAmount(strconv.FormatInt(x, 10))
	default:
		return 0, false, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
	if err != nil {
		return 0, false, err
	}
	return a, true, nil
}

// Units returns the amount in 1e-8 units.
func (a Amount) Units() int64 {
	return int64(a)
}

func (a Amount) String() string {
	u := int64(a)
	sign := ""
	if u < 0 {
		sign = "-"
		u = -u
	}
	return fmt.Sprintf("%s%d.%08d", sign, u/unitsPerWhole, u%unitsPerWhole)
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(b []byte) error {
	v, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
