package identity

import (
	"strings"
	"unicode"
)

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone keeps digits only.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// NormalizeCountryCode returns "+<digits>" or "" when no digits are present.
func NormalizeCountryCode(s string) string {
	d := NormalizePhone(s)
	if d == "" {
		return ""
	}
	return "+" + d
}

// Identifier is a login handle: an email, or a country code plus phone.
type Identifier struct {
	Email       string
	CountryCode string
	Phone       string
}

// Normalize canonicalizes the identifier. Email wins when both forms are
// present. ok is false when neither form is complete.
func (id Identifier) Normalize() (Identifier, bool) {
	if e := NormalizeEmail(id.Email); e != "" {
		if !strings.Contains(e, "@") {
			return Identifier{}, false
		}
		return Identifier{Email: e}, true
	}

	cc := NormalizeCountryCode(id.CountryCode)
	phone := NormalizePhone(id.Phone)
	if cc == "" || len(phone) < 4 {
		return Identifier{}, false
	}
	return Identifier{CountryCode: cc, Phone: phone}, true
}

// NormalizeAll canonicalizes every form present, for storing a new principal.
// Each present form must be complete and at least one must be given; a lone
// country code or phone is rejected.
func (id Identifier) NormalizeAll() (Identifier, bool) {
	var out Identifier
	if strings.TrimSpace(id.Email) != "" {
		e, ok := Identifier{Email: id.Email}.Normalize()
		if !ok {
			return Identifier{}, false
		}
		out.Email = e.Email
	}
	if strings.TrimSpace(id.CountryCode) != "" || strings.TrimSpace(id.Phone) != "" {
		ph, ok := Identifier{CountryCode: id.CountryCode, Phone: id.Phone}.Normalize()
		if !ok {
			return Identifier{}, false
		}
		out.CountryCode, out.Phone = ph.CountryCode, ph.Phone
	}
	if out.Email == "" && out.Phone == "" {
		return Identifier{}, false
	}
	return out, true
}

// String is the identifier form used in audit records.
func (id Identifier) String() string {
	if id.Email != "" {
		return id.Email
	}
	return id.CountryCode + id.Phone
}
