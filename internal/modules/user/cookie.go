package user

import (
	"net/http"
	"time"
)

// DefaultRefreshCookieName is used when no name is configured.
const DefaultRefreshCookieName = "__refresh_token__"

// CookieConfig shapes the refresh token cookie. The cookie is scoped to the
// auth routes and never readable from scripts.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = DefaultRefreshCookieName
	}
	if c.Path == "" {
		c.Path = "/api/auth"
	}
	return c
}

func (c CookieConfig) issue(value string) http.Cookie {
	return http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     c.Path,
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// clear expires the cookie on the client. MaxAge -1 is sent as Max-Age=0.
func (c CookieConfig) clear() http.Cookie {
	return http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// read extracts the refresh token from a raw Cookie header.
func (c CookieConfig) read(header string) string {
	if header == "" {
		return ""
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, ck := range cookies {
		if ck.Name == c.Name {
			return ck.Value
		}
	}
	return ""
}
