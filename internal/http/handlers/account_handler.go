// Account HTTP handlers.
//
// This file exposes the REST endpoints for registration, login, email
// verification, and password reset:
//   - POST /auth/register
//   - POST /auth/login
//   - POST /auth/verify_email
//   - POST /auth/resend_otp
//   - POST /auth/send_reset_otp
//   - POST /auth/verify_reset_otp
//   - POST /auth/reset_password
//
// Handlers in this file are transport-thin: they validate input, delegate to
// the account service, and translate domain/service errors into HTTP results.
// One-time codes are delivered out of band; the reset flow exchanges a valid
// code for a short-lived token used to authorize the final password change.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nkoutro/go-connect-backend/internal/domain"
	"github.com/nkoutro/go-connect-backend/internal/services"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"  example:"alice"`
	Name     string `json:"name"     binding:"required,min=1,max=128" example:"Alice Doe"`
	Email    string `json:"email"    binding:"required,email"         example:"alice@example.com"`
	Password string `json:"password" binding:"required,min=8,max=128" example:"s3cret-pass"`
}

// LoginRequest is the JSON payload for authenticating.
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"s3cret-pass"`
}

// LoginResponse carries the signed access token and the account it grants.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// OTPRequest is the JSON payload for submitting a one-time code.
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"       example:"alice@example.com"`
	Code  string `json:"code"  binding:"required,len=6"       example:"482913"`
}

// EmailRequest is the JSON payload for flows keyed by address only.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email" example:"alice@example.com"`
}

// ResetPasswordRequest is the JSON payload for the final reset step. The
// request must be authorized with the token returned by verify_reset_otp.
type ResetPasswordRequest struct {
	Password1 string `json:"password1" binding:"required,min=8,max=128" example:"n3w-s3cret"`
	Password2 string `json:"password2" binding:"required,min=8,max=128" example:"n3w-s3cret"`
}

//
// Helpers
//

// failAccount maps account service errors onto the HTTP error taxonomy
// shared by the auth endpoints.
func failAccount(c *gin.Context, err error) {
	switch err {
	case services.ErrEmailTaken:
		fail(c, http.StatusConflict, ErrCodeConflict, "username or email already registered")
	case services.ErrInvalidCredentials:
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
	case services.ErrInvalidOTP:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid or expired code")
	case services.ErrEmailAlreadyVerified:
		fail(c, http.StatusConflict, ErrCodeConflict, "email already verified")
	case services.ErrPasswordMismatch:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "passwords do not match")
	case services.ErrInvalidPrice:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "connection price must not be negative")
	case services.ErrUserNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// Register godoc
// @ID          register
// @Summary     Register a new account
// @Description Creates an account, grants the signup connects balance, and emails a verification code.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     409  {object} handlers.ErrorResponse "Username or email taken"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, name, email and password are required")
		return
	}
	u, err := h.accountSvc.Register(c.Request.Context(),
		strings.TrimSpace(req.Username), req.Name, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		failAccount(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and returns a bearer token plus the account.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object} handlers.LoginResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     401  {object} handlers.ErrorResponse "Invalid credentials"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}
	token, u, err := h.accountSvc.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		failAccount(c, err)
		return
	}
	ok(c, http.StatusOK, LoginResponse{Token: token, User: u})
}

// VerifyEmail godoc
// @ID          verifyEmail
// @Summary     Verify an email address
// @Description Consumes a verification code previously emailed to the address.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.OTPRequest  true  "Email and code"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid or expired code"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/verify_email [post]
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and 6-digit code are required")
		return
	}
	if err := h.accountSvc.VerifyEmail(c.Request.Context(), strings.TrimSpace(req.Email), req.Code); err != nil {
		failAccount(c, err)
		return
	}
	noContent(c)
}

// ResendOTP godoc
// @ID          resendOTP
// @Summary     Resend the verification code
// @Description Issues a fresh email verification code, invalidating prior ones.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.EmailRequest  true  "Email address"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     409  {object} handlers.ErrorResponse "Email already verified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/resend_otp [post]
func (h *Handlers) ResendOTP(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email is required")
		return
	}
	if err := h.accountSvc.ResendOTP(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		failAccount(c, err)
		return
	}
	noContent(c)
}

// SendResetOTP godoc
// @ID          sendResetOTP
// @Summary     Request a password-reset code
// @Description Emails a one-time code that can be exchanged for a reset token.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.EmailRequest  true  "Email address"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/send_reset_otp [post]
func (h *Handlers) SendResetOTP(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email is required")
		return
	}
	if err := h.accountSvc.SendResetOTP(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		failAccount(c, err)
		return
	}
	noContent(c)
}

// VerifyResetOTP godoc
// @ID          verifyResetOTP
// @Summary     Verify a password-reset code
// @Description Consumes a reset code and returns a short-lived token that authorizes /auth/reset_password.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.OTPRequest  true  "Email and code"
//
// @Success     200  {object} map[string]string "token"
// @Failure     400  {object} handlers.ErrorResponse "Invalid or expired code"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/verify_reset_otp [post]
func (h *Handlers) VerifyResetOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and 6-digit code are required")
		return
	}
	token, err := h.accountSvc.VerifyResetOTP(c.Request.Context(), strings.TrimSpace(req.Email), req.Code)
	if err != nil {
		failAccount(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"token": token})
}

// ResetPassword godoc
// @ID          resetPassword
// @Summary     Reset the password
// @Description Replaces the password of the authenticated user. Authorize with the token from /auth/verify_reset_otp.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.ResetPasswordRequest  true  "New password, twice"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Passwords do not match"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/reset_password [post]
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password1 and password2 are required")
		return
	}
	if err := h.accountSvc.ResetPassword(c.Request.Context(), userID(c), req.Password1, req.Password2); err != nil {
		failAccount(c, err)
		return
	}
	noContent(c)
}
