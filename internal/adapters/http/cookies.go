package http

import (
	"net/http"
	"time"
)

const (
	accessTokenCookie  = "token"
	refreshTokenCookie = "refreshToken"
)

// CookieOptions controls the auth cookie attributes. Production hardens
// Secure and SameSite; outside production the relaxed attributes keep local
// HTTP development working.
type CookieOptions struct {
	Production    bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func (o CookieOptions) sameSite() http.SameSite {
	if o.Production {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func (o CookieOptions) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   o.Production,
		SameSite: o.sameSite(),
	})
}

func (o CookieOptions) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	o.set(w, accessTokenCookie, accessToken, o.AccessMaxAge)
	o.set(w, refreshTokenCookie, refreshToken, o.RefreshMaxAge)
}

func (o CookieOptions) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   o.Production,
			SameSite: o.sameSite(),
		})
	}
}
