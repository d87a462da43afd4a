package model

import (
	"net/netip"
	"strings"
	"unicode"
)

// MaskType names a data format with a builtin masking rule.
type MaskType string

const (
	MaskSSN   MaskType = "ssn"   // 123-45-6789 -> ***-**-6789
	MaskEmail MaskType = "email" // alice@example.com -> a***@example.com
	MaskPhone MaskType = "phone" // (555) 123-4567 -> (***) ***-4567
	MaskCard  MaskType = "card"  // 4111111111111111 -> ************1111
	MaskIP    MaskType = "ip"    // 192.168.1.100 -> 192.168.xxx.xxx
	MaskUUID  MaskType = "uuid"  // 550e8400-e29b-41d4-a716-446655440000 -> 550e8400-****-****-****-************
	MaskIBAN  MaskType = "iban"  // GB82WEST12345698765432 -> GB82************5432
	MaskName  MaskType = "name"  // John Smith -> J*** S****
)

var validMaskTypes = map[MaskType]bool{
	MaskSSN:   true,
	MaskEmail: true,
	MaskPhone: true,
	MaskCard:  true,
	MaskIP:    true,
	MaskUUID:  true,
	MaskIBAN:  true,
	MaskName:  true,
}

// IsValidMaskType reports whether mt is a builtin mask type.
func IsValidMaskType(mt MaskType) bool {
	return validMaskTypes[mt]
}

// Masker hides part of a text value while keeping it recognisable.
type Masker interface {
	Mask(value string) string
}

// MaskerFunc adapts a plain function to Masker.
type MaskerFunc func(value string) string

// Mask calls f(value).
func (f MaskerFunc) Mask(value string) string {
	return f(value)
}

// SSNMasker keeps the last four digits of a Social Security Number.
func SSNMasker() Masker {
	return MaskerFunc(func(value string) string {
		last, ok := lastDigits(value, 4)
		if !ok {
			return stars(len(value))
		}
		return "***-**-" + last
	})
}

// EmailMasker keeps the first character of the local part and the domain.
func EmailMasker() Masker {
	return MaskerFunc(func(value string) string {
		at := strings.LastIndex(value, "@")
		if at < 1 {
			return stars(len(value))
		}
		return value[:1] + "***" + value[at:]
	})
}

// PhoneMasker keeps the last four digits and the parenthesised area code
// layout when present.
func PhoneMasker() Masker {
	return MaskerFunc(func(value string) string {
		last, ok := lastDigits(value, 4)
		if !ok {
			return stars(len(value))
		}
		n := len(digitsOf(value))
		switch {
		case n >= 10 && strings.HasPrefix(value, "("):
			return "(***) ***-" + last
		case n >= 10:
			return "***-***-" + last
		}
		return "***-" + last
	})
}

// CardMasker keeps the last four digits of a card number. Spaced and dashed
// numbers keep their grouping.
func CardMasker() Masker {
	return MaskerFunc(func(value string) string {
		last, ok := lastDigits(value, 4)
		if !ok {
			return stars(len(value))
		}
		hidden := len(digitsOf(value)) - 4
		for _, sep := range []string{" ", "-"} {
			if strings.Contains(value, sep) {
				groups := make([]string, (hidden+3)/4, (hidden+3)/4+1)
				for i := range groups {
					groups[i] = "****"
				}
				return strings.Join(append(groups, last), sep)
			}
		}
		return stars(hidden) + last
	})
}

// IPMasker keeps the network half of an address: two octets of IPv4, four
// groups of IPv6.
func IPMasker() Masker {
	return MaskerFunc(func(value string) string {
		addr, err := netip.ParseAddr(value)
		switch {
		case err != nil:
			return stars(len(value))
		case addr.Is4():
			octets := strings.Split(addr.String(), ".")
			return octets[0] + "." + octets[1] + ".xxx.xxx"
		}
		groups := strings.Split(addr.StringExpanded(), ":")
		return strings.Join(groups[:4], ":") + ":xxxx:xxxx:xxxx:xxxx"
	})
}

// UUIDMasker keeps the first segment of a UUID.
func UUIDMasker() Masker {
	return MaskerFunc(func(value string) string {
		first, _, found := strings.Cut(value, "-")
		if !found || strings.Count(value, "-") != 4 {
			return stars(len(value))
		}
		return first + "-****-****-****-************"
	})
}

// IBANMasker keeps the country code, check digits and last four characters.
func IBANMasker() Masker {
	return MaskerFunc(func(value string) string {
		if len(value) <= 8 {
			return stars(len(value))
		}
		return value[:4] + stars(len(value)-8) + value[len(value)-4:]
	})
}

// NameMasker keeps the first letter of each word.
func NameMasker() Masker {
	return MaskerFunc(func(value string) string {
		words := strings.Fields(value)
		for i, w := range words {
			r := []rune(w)
			words[i] = string(r[0]) + stars(len(r)-1)
		}
		return strings.Join(words, " ")
	})
}

func stars(n int) string {
	return strings.Repeat("*", n)
}

func digitsOf(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// lastDigits returns the last n digits of s, or false when s has fewer.
func lastDigits(s string, n int) (string, bool) {
	d := digitsOf(s)
	if len(d) < n {
		return "", false
	}
	return d[len(d)-n:], true
}

// builtinMaskers returns the maskers every Processor starts with.
func builtinMaskers() map[MaskType]Masker {
	return map[MaskType]Masker{
		MaskSSN:   SSNMasker(),
		MaskEmail: EmailMasker(),
		MaskPhone: PhoneMasker(),
		MaskCard:  CardMasker(),
		MaskIP:    IPMasker(),
		MaskUUID:  UUIDMasker(),
		MaskIBAN:  IBANMasker(),
		MaskName:  NameMasker(),
	}
}

// maskValue masks text in view values: strings directly, lists and maps
// element by element. Other values are rendered as text first.
func maskValue(m Masker, value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return m.Mask(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = maskValue(m, e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = maskValue(m, e)
		}
		return out
	}
	return m.Mask(toString(value))
}
