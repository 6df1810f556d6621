package session

import (
	"net/http"
	"strings"
	"time"
)

// CookiePolicy describes the refresh-token cookie. The refresh token is never
// written to a response body.
type CookiePolicy struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
	Path     string
}

func (p CookiePolicy) withDefaults() CookiePolicy {
	if p.Name == "" {
		p.Name = "refresh-token"
	}
	if p.Path == "" {
		p.Path = "/"
	}
	if p.MaxAge <= 0 {
		p.MaxAge = 168 * time.Hour
	}
	if p.SameSite == 0 {
		p.SameSite = http.SameSiteNoneMode
	}
	return p
}

func (p CookiePolicy) Set(w http.ResponseWriter, refreshToken string) {
	p = p.withDefaults()
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    refreshToken,
		Path:     p.Path,
		MaxAge:   int(p.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

func (p CookiePolicy) Clear(w http.ResponseWriter) {
	p = p.withDefaults()
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     p.Path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

func (p CookiePolicy) Read(r *http.Request) string {
	p = p.withDefaults()
	cookie, err := r.Cookie(p.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
