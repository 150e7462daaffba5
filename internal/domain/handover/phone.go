package handover

import (
	"fmt"
	"strings"
)

const whatsappPrefix = "whatsapp:"

// NormalizePhoneNumber turns a user-supplied phone number into E.164-ish
// form: separators stripped, a leading 00 rewritten to +, and a bare
// national number assumed to be +1. Numbers shorter than ten digits are
// rejected.
func NormalizePhoneNumber(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("phone number is empty")
	}

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	number := b.String()

	switch {
	case strings.HasPrefix(number, "00"):
		number = "+" + number[2:]
	case !strings.HasPrefix(number, "+"):
		number = "+1" + number
	}

	if digitCount(number) < 10 {
		return "", fmt.Errorf("phone number %q is too short", raw)
	}
	return number, nil
}

// NormalizeWhatsAppNumber normalizes a phone number and prefixes it with the
// whatsapp: channel marker. Input already carrying the marker is trusted and
// passed through unchanged.
func NormalizeWhatsAppNumber(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, whatsappPrefix) {
		return trimmed, nil
	}
	number, err := NormalizePhoneNumber(trimmed)
	if err != nil {
		return "", err
	}
	return whatsappPrefix + number, nil
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
