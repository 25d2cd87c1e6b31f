package api

import (
	"net/http"
	"regexp"

	"github.com/MikeSquared-Agency/tailored/internal/decision"
)

var visitorIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// cookieStorage is the HTTP rendition of browser session storage: values
// live in session cookies, which the browser drops when the session ends.
type cookieStorage struct {
	w http.ResponseWriter
	r *http.Request
}

func (c cookieStorage) Get(key string) (string, bool) {
	ck, err := c.r.Cookie(key)
	if err != nil || !visitorIDPattern.MatchString(ck.Value) {
		return "", false
	}
	return ck.Value, true
}

func (c cookieStorage) Set(key, value string) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func visitorID(w http.ResponseWriter, r *http.Request) string {
	return decision.VisitorID(cookieStorage{w: w, r: r})
}
