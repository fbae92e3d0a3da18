package privacy

import (
	"strings"

	"mensageiro/internal/constants"
)

// MaskDestination masks a phone number or email address for log output,
// keeping only the trailing digits or the domain visible.
// Example: "+5511987654321" -> "+*********4321", "ana@example.org" -> "a**@example.org"
func MaskDestination(dest string) string {
	if dest == "" {
		return ""
	}
	if strings.Contains(dest, "@") {
		return maskEmail(dest)
	}
	return MaskPhoneNumber(dest)
}

// MaskPhoneNumber masks a phone number showing only the last digits.
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	keep := constants.DefaultPhoneMaskLength

	if strings.HasPrefix(phone, "+") {
		if len(phone) <= keep+1 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-keep-1) + phone[len(phone)-keep:]
	}

	if len(phone) <= keep {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-keep) + phone[len(phone)-keep:]
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	local := email[:at]
	domain := email[at:]
	if len(local) <= 1 {
		return strings.Repeat("*", len(local)) + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + domain
}
