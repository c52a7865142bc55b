// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/caseline/internal/platform/apperr"
	"github.com/taibuivan/caseline/internal/platform/ctxutil"
	"github.com/taibuivan/caseline/internal/platform/session"
	"github.com/taibuivan/caseline/internal/platform/validate"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
SessionUser returns the validated session user, or an error when the route
was reached without one.

Returns:
  - *session.User: The authenticated user projection
  - error: apperr.Unauthorized if the request is not authenticated
*/
func SessionUser(request *http.Request) (*session.User, error) {
	user := ctxutil.GetSessionUser(request.Context())
	if user == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return user, nil
}

/*
SessionID returns the session id read from the cookie, or "" when absent.
*/
func SessionID(request *http.Request) string {
	id, _ := ctxutil.GetSessionID(request.Context())
	return id
}
