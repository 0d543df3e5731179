// internal/utils/formatters.go
package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// FormatCurrency renders an amount as Indian Rupees with Indian digit
// grouping and no decimals, e.g. 10000000 -> "₹1,00,00,000".
func FormatCurrency(amount float64) string {
	neg := amount < 0
	n := int64(math.Round(math.Abs(amount)))
	grouped := groupIndian(fmt.Sprintf("%d", n))
	if neg {
		return "-₹" + grouped
	}
	return "₹" + grouped
}

// groupIndian applies Indian-system digit grouping: the last three digits,
// then groups of two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(parts, ",") + "," + tail
}

// FormatDate renders a timestamp in the short Indian style, e.g. "08 Sep 2025".
func FormatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// FormatPhoneNumber normalizes a ten-digit Indian number to "+91 XXXXX XXXXX".
// Anything else is returned unchanged.
func FormatPhoneNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if len(cleaned) == 10 {
		return fmt.Sprintf("+91 %s %s", cleaned[:5], cleaned[5:])
	}
	return phone
}

// FormatFormNumber renders a form number as LMS-YYYY-MM-DD-XXXX for display.
// Numbers that do not match the expected shape are returned unchanged.
func FormatFormNumber(number string) string {
	if len(number) == 15 && strings.HasPrefix(number, "LMS") {
		return fmt.Sprintf("%s-%s-%s-%s-%s",
			number[:3], number[3:7], number[7:9], number[9:11], number[11:])
	}
	return number
}

var (
	onesWords = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}
	teenWords = []string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tensWords = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// NumberToWords spells an amount in words using the Indian numbering system,
// e.g. 250000 -> "Two Lakh Fifty Thousand Rupees Only".
func NumberToWords(amount int64) string {
	if amount == 0 {
		return "Zero"
	}

	crore := amount / 10000000
	amount %= 10000000
	lakh := amount / 100000
	amount %= 100000
	thousand := amount / 1000
	remainder := amount % 1000

	var b strings.Builder
	if crore > 0 {
		b.WriteString(convertThreeDigit(crore) + " Crore ")
	}
	if lakh > 0 {
		b.WriteString(convertThreeDigit(lakh) + " Lakh ")
	}
	if thousand > 0 {
		b.WriteString(convertThreeDigit(thousand) + " Thousand ")
	}
	if remainder > 0 {
		b.WriteString(convertThreeDigit(remainder))
	}

	return strings.TrimSpace(b.String()) + " Rupees Only"
}

func convertThreeDigit(num int64) string {
	hundred := num / 100
	remainder := num % 100
	var b strings.Builder

	if hundred > 0 {
		b.WriteString(onesWords[hundred] + " Hundred")
		if remainder > 0 {
			b.WriteString(" ")
		}
	}

	if remainder >= 10 && remainder < 20 {
		b.WriteString(teenWords[remainder-10])
	} else {
		ten := remainder / 10
		one := remainder % 10
		if ten > 0 {
			b.WriteString(tensWords[ten])
		}
		if one > 0 {
			if ten > 0 {
				b.WriteString(" ")
			}
			b.WriteString(onesWords[one])
		}
	}

	return b.String()
}
