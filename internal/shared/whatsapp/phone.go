package whatsapp

import "strings"

const (
	countryCode      = "55"
	localMobileLen   = 11
	localLandlineLen = 10
)

// NormalizePhone reduces a Brazilian phone number to the 11-digit local key
// used in storage (DDD + 9 + 8 digits). The result is idempotent:
//
//	+55 11 91234-5678 -> 11912345678
//	5511912345678     -> 11912345678
//	11 1234-5678      -> 11912345678 (legacy 8-digit mobile)
//
// Input that cannot be reduced is returned as its digits.
func NormalizePhone(phone string) string {
	digits := onlyDigits(phone)

	// trunk prefix: 0 11 91234-5678
	digits = strings.TrimLeft(digits, "0")

	if strings.HasPrefix(digits, countryCode) {
		rest := digits[len(countryCode):]
		if len(rest) == localMobileLen || len(rest) == localLandlineLen {
			digits = rest
		}
	}

	if len(digits) == localLandlineLen && isMobilePrefix(digits[2]) {
		digits = digits[:2] + "9" + digits[2:]
	}

	return digits
}

// InternationalPhone returns the gateway form of a phone: 55 + local key
func InternationalPhone(phone string) string {
	local := NormalizePhone(phone)
	if local == "" {
		return ""
	}
	return countryCode + local
}

// IsValidLocalPhone reports whether a normalised key looks like a mobile number
func IsValidLocalPhone(phone string) bool {
	return len(phone) == localMobileLen && phone[2] == '9'
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mobile numbers start with 6-9 after the DDD; landlines with 2-5
func isMobilePrefix(c byte) bool {
	return c >= '6' && c <= '9'
}
