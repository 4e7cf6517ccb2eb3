// Package document validates and formats Brazilian taxpayer numbers
// (CPF for people, CNPJ for companies).
package document

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindCPF  Kind = "CPF"
	KindCNPJ Kind = "CNPJ"
)

const (
	CPFLength  = 11
	CNPJLength = 14
)

var (
	ErrEmpty         = errors.New("document is empty")
	ErrInvalidLength = errors.New("document must have 11 (CPF) or 14 (CNPJ) digits")
	ErrChecksum      = errors.New("document check digits do not match")
)

// Clean strips everything except digits.
func Clean(doc string) string {
	var b strings.Builder
	b.Grow(len(doc))
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func Detect(doc string) (Kind, bool) {
	switch len(Clean(doc)) {
	case CPFLength:
		return KindCPF, true
	case CNPJLength:
		return KindCNPJ, true
	}
	return "", false
}

func IsValidCPF(doc string) bool {
	digits := Clean(doc)
	if len(digits) != CPFLength || repeated(digits) {
		return false
	}
	d := toInts(digits)
	return checkDigit(d[:9], descending(10)) == d[9] &&
		checkDigit(d[:10], descending(11)) == d[10]
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

func IsValidCNPJ(doc string) bool {
	digits := Clean(doc)
	if len(digits) != CNPJLength || repeated(digits) {
		return false
	}
	d := toInts(digits)
	return checkDigit(d[:12], cnpjWeights1) == d[12] &&
		checkDigit(d[:13], cnpjWeights2) == d[13]
}

func FormatCPF(doc string) string {
	d := Clean(doc)
	if len(d) != CPFLength {
		return doc
	}
	return fmt.Sprintf("%s.%s.%s-%s", d[0:3], d[3:6], d[6:9], d[9:11])
}

func FormatCNPJ(doc string) string {
	d := Clean(doc)
	if len(d) != CNPJLength {
		return doc
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", d[0:2], d[2:5], d[5:8], d[8:12], d[12:14])
}

func Format(doc string) string {
	kind, ok := Detect(doc)
	if !ok {
		return doc
	}
	if kind == KindCPF {
		return FormatCPF(doc)
	}
	return FormatCNPJ(doc)
}

type Result struct {
	Valid     bool
	Kind      Kind
	Digits    string
	Formatted string
	Err       error
}

// Validate cleans the document, detects its kind and checks the digits.
func Validate(doc string) Result {
	digits := Clean(doc)
	res := Result{Digits: digits}
	if digits == "" {
		res.Err = ErrEmpty
		return res
	}
	kind, ok := Detect(digits)
	if !ok {
		res.Err = ErrInvalidLength
		return res
	}
	res.Kind = kind
	switch kind {
	case KindCPF:
		res.Valid = IsValidCPF(digits)
	case KindCNPJ:
		res.Valid = IsValidCNPJ(digits)
	}
	if !res.Valid {
		res.Err = fmt.Errorf("invalid %s: %w", kind, ErrChecksum)
		return res
	}
	res.Formatted = Format(digits)
	return res
}

// CheckDigits computes the two trailing verification digits for a CPF base
// of 9 digits or a CNPJ base of 12 digits.
func CheckDigits(base string) (string, error) {
	d := toInts(Clean(base))
	switch len(d) {
	case 9:
		first := checkDigit(d, descending(10))
		second := checkDigit(append(d, first), descending(11))
		return fmt.Sprintf("%d%d", first, second), nil
	case 12:
		first := checkDigit(d, cnpjWeights1)
		second := checkDigit(append(d, first), cnpjWeights2)
		return fmt.Sprintf("%d%d", first, second), nil
	}
	return "", ErrInvalidLength
}

func checkDigit(digits []int, weights []int) int {
	sum := 0
	for i, v := range digits {
		sum += v * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

func descending(from int) []int {
	out := make([]int, 0, from-1)
	for w := from; w >= 2; w-- {
		out = append(out, w)
	}
	return out
}

func toInts(digits string) []int {
	out := make([]int, len(digits))
	for i := range digits {
		out[i] = int(digits[i] - '0')
	}
	return out
}

func repeated(digits string) bool {
	return strings.Count(digits, digits[:1]) == len(digits)
}
