package links

import (
	"net/url"
	"strings"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
)

const whatsAppBase = "https://wa.me/"

// WhatsAppLink builds a click-to-chat link. Non-digits are stripped from
// both the country code and the phone number.
func WhatsAppLink(countryCode, phone, message string) (string, error) {
	cc := digits(countryCode)
	number := digits(phone)
	if number == "" {
		return "", apperrors.Validation("phone number is required")
	}
	return whatsAppBase + cc + number + "?text=" + encodeComponent(message), nil
}

// NormalizeURL trims input and adds https:// when no http(s) scheme is
// present. Only http and https URLs with a host are accepted.
func NormalizeURL(input string) (string, error) {
	t := strings.TrimSpace(input)
	if t == "" {
		return "", apperrors.Validation("URL is required")
	}
	lower := strings.ToLower(t)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(t, "://") {
			return "", apperrors.Validation("Only http and https links can be shortened")
		}
		t = "https://" + t
	}

	u, err := url.Parse(t)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperrors.Validation("Invalid link. Use a full URL (https://...)")
	}
	return t, nil
}

// BuildShortURL joins the public base and a short code as <base>/s/<code>.
func BuildShortURL(base, code string) string {
	return strings.TrimRight(base, "/") + "/s/" + code
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// encodeComponent percent-encodes the UTF-8 bytes of s, leaving only
// letters, digits and -_.!~*'() unescaped.
func encodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isComponentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isComponentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
