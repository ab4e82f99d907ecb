package api

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookie = "flash"

// flash is a one-shot message shown on the next rendered page.
type flash struct {
	Kind    string // success, info or danger
	Message string
}

func setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	return &flash{Kind: kind, Message: message}
}
