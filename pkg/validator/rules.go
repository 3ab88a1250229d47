package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)},
	}
}

func Positive[T Numeric](field string, value T) Rule {
	return Rule{
		Check: func() bool { return value > 0 },
		Error: ValidationError{Field: field, Message: "must be greater than zero"},
	}
}

func OneOf[T comparable](field string, value T, allowed ...T) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be one of %v", allowed)},
	}
}

var (
	tickerPattern  = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
	addressPattern = regexp.MustCompile(`^[A-Za-z0-9:]{14,128}$`)
)

// Ticker accepts upper-case asset or currency symbols such as "BTC" or "USD".
func Ticker(field, value string) Rule {
	return Rule{
		Check: func() bool { return tickerPattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must be an upper-case ticker symbol"},
	}
}

// Address accepts alphanumeric payout addresses. Checksums are not verified.
func Address(field, value string) Rule {
	return Rule{
		Check: func() bool { return addressPattern.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must be an alphanumeric address"},
	}
}
