// Package words converts invoice amounts into the English amount-in-words
// line that Indian tax invoices carry, using the Indian grouping system
// (thousand, lakh, crore).
package words

import (
	"errors"
	"math"
	"strings"
)

var ErrOutOfRange = errors.New("amount out of range for words conversion")

var ones = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// AmountInWords renders a rupee amount, e.g. 1234.50 becomes
// "One Thousand Two Hundred Thirty Four Rupees and Fifty Paise Only".
// Paise are omitted when zero. Amounts must be non-negative and below
// one thousand crore.
func AmountInWords(amount float64) (string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return "", ErrOutOfRange
	}

	// Round to paise first so 99.999 does not yield "Ninety Nine Rupees and
	// One Hundred Paise".
	totalPaise := int64(math.Round(amount * 100))
	rupees := totalPaise / 100
	paise := totalPaise % 100

	if rupees >= 1_00_00_00_00_00 {
		return "", ErrOutOfRange
	}

	var b strings.Builder
	if rupees == 0 {
		b.WriteString("Zero")
	} else {
		b.WriteString(integerInWords(rupees))
	}
	if rupees == 1 {
		b.WriteString(" Rupee")
	} else {
		b.WriteString(" Rupees")
	}
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(integerInWords(paise))
		if paise == 1 {
			b.WriteString(" Paisa")
		} else {
			b.WriteString(" Paise")
		}
	}
	b.WriteString(" Only")
	return b.String(), nil
}

// integerInWords handles the Indian place-value chunking: crores, lakhs,
// thousands, hundreds, then the final two digits.
func integerInWords(n int64) string {
	parts := make([]string, 0, 5)

	if crores := n / 1_00_00_000; crores > 0 {
		parts = append(parts, integerInWords(crores), "Crore")
		n %= 1_00_00_000
	}
	if lakhs := n / 1_00_000; lakhs > 0 {
		parts = append(parts, twoDigits(lakhs), "Lakh")
		n %= 1_00_000
	}
	if thousands := n / 1000; thousands > 0 {
		parts = append(parts, twoDigits(thousands), "Thousand")
		n %= 1000
	}
	if hundreds := n / 100; hundreds > 0 {
		parts = append(parts, ones[hundreds], "Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, twoDigits(n))
	}
	return strings.Join(parts, " ")
}

func twoDigits(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
