// Package imei validates and normalizes device identifiers.
package imei

// Normalize strips every non-digit character from raw and validates the
// result as a 15-digit IMEI with a trailing Luhn check digit. It returns
// the normalized digits and true on success, or "" and false otherwise.
//
// Equivalent inputs with punctuation mixed into the digits normalize
// identically: "35-209900-176148-1" and "352099001761481" both reduce to
// the same 15-digit string.
func Normalize(raw string) (string, bool) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) != 15 {
		return "", false
	}

	sum := 0
	for i := 0; i < 15; i++ {
		// Odd zero-based positions counted from the rightmost digit are doubled.
		n := int(digits[14-i] - '0')
		if i%2 == 1 {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
	}
	if sum%10 != 0 {
		return "", false
	}
	return string(digits), true
}
