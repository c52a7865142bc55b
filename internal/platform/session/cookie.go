// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"net/http"
	"time"
)

// Cookie describes how the session id travels to and from the client.
type Cookie struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

// Set writes the session cookie carrying id.
func (c Cookie) Set(writer http.ResponseWriter, id string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     c.Path,
		MaxAge:   int(c.MaxAge / time.Second),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the session cookie on the client.
func (c Cookie) Clear(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		MaxAge:   -1,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Read returns the session id carried by request, or "" when absent.
func (c Cookie) Read(request *http.Request) string {
	cookie, err := request.Cookie(c.Name)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}
