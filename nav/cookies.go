package nav

import (
	"net/http"
	"strings"
)

// ParseCookieString splits a raw "name=value; name2=value2" cookie header
// (the shape users paste out of browser devtools) into cookies scoped to the
// given domain. Malformed pairs are skipped. secure should reflect the target
// scheme; marking cookies Secure for a plain-http target would stop the
// browser from sending them at all.
func ParseCookieString(raw, domain string, secure bool) []http.Cookie {
	parts := strings.Split(raw, ";")
	cookies := make([]http.Cookie, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		cookies = append(cookies, http.Cookie{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
			Secure: secure,
		})
	}
	return cookies
}
