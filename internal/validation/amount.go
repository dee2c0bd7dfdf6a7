// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrMalformedAmount возвращается для строки, не являющейся денежной суммой.
var ErrMalformedAmount = errors.New("malformed amount")

// ParseAmount разбирает беззнаковую денежную сумму: непустая целая часть из
// цифр и необязательная дробная часть из одной или двух цифр после точки.
// Знаки, экспоненты и прочие формы, которые принял бы общий разбор
// десятичных чисел, отклоняются.
func ParseAmount(s string) (decimal.Decimal, error) {
	if !isAmount(s) {
		return decimal.Zero, ErrMalformedAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrMalformedAmount
	}
	return d, nil
}

func isAmount(s string) bool {
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if i == 0 {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != '.' {
		return false
	}

	frac := 0
	for i++; i < len(s) && unicode.IsDigit(rune(s[i])); i++ {
		frac++
	}
	return i == len(s) && frac >= 1 && frac <= 2
}
