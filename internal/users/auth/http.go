// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"strings"

	"github.com/taibuivan/caseline/internal/platform/constants"
	"github.com/taibuivan/caseline/internal/platform/middleware"
	requestutil "github.com/taibuivan/caseline/internal/platform/request"
	"github.com/taibuivan/caseline/internal/platform/respond"
	"github.com/taibuivan/caseline/internal/platform/session"
	"github.com/taibuivan/caseline/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the public authentication endpoints.
//
// # Scope
//
// Entry points of the user lifecycle: registration, login, password reset
// and the link-and-code steps that precede account recovery.
type Handler struct {
	authService *Service
	cookie      session.Cookie
	// exposeLinks returns mailed links in the response body. Never enabled in production.
	exposeLinks bool
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, cookie session.Cookie, exposeLinks bool) *Handler {
	return &Handler{authService: service, cookie: cookie, exposeLinks: exposeLinks}
}

// Routes returns the authentication rows of the route table. All are public.
func (handler *Handler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: http.MethodPost, Pattern: "/auth/login", Handler: handler.login, Public: true},
		{Method: http.MethodPost, Pattern: "/auth/register", Handler: handler.register, Public: true},
		{Method: http.MethodPost, Pattern: "/auth/forgot-password", Handler: handler.forgotPassword, Public: true},
		{Method: http.MethodPost, Pattern: "/auth/reset-password/{token}", Handler: handler.resetPassword, Public: true},
		{Method: http.MethodPost, Pattern: "/auth/account/verify", Handler: handler.requestRecovery, Public: true},
		{Method: http.MethodPost, Pattern: "/auth/checkpoint/{token}", Handler: handler.checkpoint, Public: true},
		{Method: http.MethodPost, Pattern: "/auth/otp/resend/{token}", Handler: handler.resendOTP, Public: true},
	}
}

// # Request Payloads

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type otpRequest struct {
	OTP string `json:"otp"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (FirstName, LastName, Email, Password)

Response:
  - 201: {UID}
  - 400: Validation failure
  - 409: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, 100).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, 100).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		MaxLen(FieldPassword, input.Password, 72).
		Password(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]string{FieldUID: user.ID})
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials, stores a new session and sets the session
cookie. A session cookie already present on the request is destroyed.

Response:
  - 200: {UID, role}
  - 401: Invalid credentials
  - 429: Too many attempts
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:             input.Email,
		Password:          input.Password,
		IPAddress:         middleware.RealIP(request),
		PreviousSessionID: handler.cookie.Read(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Set(writer, result.SessionID)

	respond.OK(writer, map[string]string{
		FieldUID:  result.User.ID,
		FieldRole: string(result.User.Role),
	})
}

/*
ForgotPassword mails a password reset link.

POST /api/v1/auth/forgot-password

Response:
  - 200: {link} outside production, {message} otherwise
  - 400: Unknown account or invalid email
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	link, err := handler.authService.ForgotPassword(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.respondLink(writer, link, "A reset link has been sent to your email")
}

/*
ResetPassword completes the forgot-password flow.

POST /api/v1/auth/reset-password/{token}

Response:
  - 200: {message}
  - 400: Expired link or weak password
  - 401: Invalid link
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		MaxLen(FieldPassword, input.Password, 72).
		Password(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token := requestutil.Param(request, FieldToken)
	if err := handler.authService.ResetPassword(request.Context(), token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Password updated"})
}

/*
RequestRecovery starts recovery of a deleted account.

POST /api/v1/auth/account/verify

Description: Mails a one-time code together with the checkpoint link.

Response:
  - 200: {link} outside production, {message} otherwise
  - 400: No deleted account for this email, or too many codes requested
*/
func (handler *Handler) requestRecovery(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	link, err := handler.authService.RequestAccountRecovery(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.respondLink(writer, link, "A verification code has been sent to your email")
}

/*
Checkpoint checks the mailed code against the link token.

POST /api/v1/auth/checkpoint/{token}

Response:
  - 200: {link} to the restore step
  - 400: Invalid OTP or expired link
  - 401: Invalid link
*/
func (handler *Handler) checkpoint(writer http.ResponseWriter, request *http.Request) {
	code, ok := DecodeOTP(writer, request)
	if !ok {
		return
	}

	link, err := handler.authService.Checkpoint(request.Context(), requestutil.Param(request, FieldToken), code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldLink: link})
}

/*
ResendOTP issues a fresh code for the link token's subject.

POST /api/v1/auth/otp/resend/{token}

Response:
  - 200: {message}
  - 400: Too many codes requested or expired link
  - 401: Invalid link
*/
func (handler *Handler) resendOTP(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.ResendOTP(request.Context(), requestutil.Param(request, FieldToken)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "A new verification code has been sent"})
}

// # Helpers

// DecodeOTP reads and validates an {otp} body. It writes the error response
// itself and reports whether the handler may continue.
func DecodeOTP(writer http.ResponseWriter, request *http.Request) (string, bool) {
	var input otpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}

	code := strings.ToUpper(strings.TrimSpace(input.OTP))

	validator := &validate.Validator{}
	validator.Required(FieldOTP, code).Code(FieldOTP, code, constants.OTPLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}

	return code, true
}

func (handler *Handler) respondLink(writer http.ResponseWriter, link, message string) {
	if handler.exposeLinks {
		respond.OK(writer, map[string]string{FieldLink: link})
		return
	}
	respond.OK(writer, map[string]string{FieldMessage: message})
}
