package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redmonkez12/account-service/internal/httputil"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/user"
)

// Handler contains HTTP handlers for the authentication endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangeEmailRequest represents the email change request body
type ChangeEmailRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the password change request body.
// Password is the current password; it may be omitted when the bearer token
// carries the password-reset claim.
type ChangePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// ResetRequest represents the password reset request body
type ResetRequest struct {
	Email string `json:"email"`
}

// StatusResponse is the public account summary
type StatusResponse struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
	ID           int64     `json:"id"`
}

// Signup handles account creation
// @Summary      Sign up
// @Description  Create an unverified account. A verification email is sent; no token is returned.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup fields"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.MessageResponse "Duplicate email or validation error"
// @Failure      502 {object} httputil.MessageResponse "Verification email could not be sent"
// @Router       /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, logger, "signup", err)
		return
	}

	logger.Info("user signed up", "user_id", newUser.ID)

	httputil.RespondMessage(w, "Signup successful. Please check your email to verify your account.", http.StatusOK)
}

// Login handles credential verification and token issuance
// @Summary      Log in
// @Description  Authenticate and receive access and refresh tokens. Unverified accounts get a fresh verification email instead.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} TokenPair
// @Failure      400 {object} httputil.MessageResponse "Invalid login or not verified"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, logger, "login", err)
		return
	}

	logger.Info("user logged in")

	httputil.RespondJSON(w, pair, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email
// @Description  Confirm the account's email address using the emailed refresh token.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} TokenPair
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /auth/verify [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	subject, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	pair, err := h.service.VerifyEmail(r.Context(), subject)
	if err != nil {
		h.respondServiceError(w, logger, "verify email", err)
		return
	}

	httputil.RespondJSON(w, pair, http.StatusOK)
}

// Refresh handles access token refresh
// @Summary      Refresh access token
// @Description  Mint a new access token from a refresh token. The refresh token is not rotated.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} TokenPair
// @Failure      400 {object} httputil.MessageResponse "Not verified"
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	subject, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	pair, err := h.service.Refresh(r.Context(), subject)
	if err != nil {
		h.respondServiceError(w, logger, "refresh", err)
		return
	}

	httputil.RespondJSON(w, pair, http.StatusOK)
}

// Logout handles token revocation
// @Summary      Log out
// @Description  Revoke the presented token. Works with either token kind and is idempotent.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.MessageResponse
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.respondServiceError(w, logger, "logout", err)
		return
	}

	logger.Info("user logged out")

	httputil.RespondMessage(w, "logged out", http.StatusOK)
}

// Delete handles account deletion
// @Summary      Delete account
// @Description  Delete the authenticated account. All outstanding tokens stop verifying immediately.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.MessageResponse
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /auth/delete [post]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	subject, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if err := h.service.Delete(r.Context(), subject); err != nil {
		h.respondServiceError(w, logger, "delete account", err)
		return
	}

	httputil.RespondMessage(w, "account deleted", http.StatusOK)
}

// ChangeEmail handles email changes
// @Summary      Change email
// @Description  Update the account email after password re-confirmation. The account returns to unverified and a verification email goes to the new address.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangeEmailRequest true "New email and current password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.MessageResponse "Invalid login or duplicate email"
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /auth/email [post]
func (h *Handler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	subject, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var req ChangeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ChangeEmail(r.Context(), subject, req.Email, req.Password); err != nil {
		h.respondServiceError(w, logger, "change email", err)
		return
	}

	logger.Info("email changed", "user_id", subject.ID)

	httputil.RespondMessage(w, "Email updated. Please check your inbox to verify the new address.", http.StatusOK)
}

// ChangePassword handles password changes
// @Summary      Change password
// @Description  Set a new password. Requires the current password unless the bearer token carries the reset claim. All other sessions are invalidated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Current (optional on reset) and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.MessageResponse "Invalid login or validation error"
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /auth/password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	subject, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ChangePassword(r.Context(), subject, claims, req.Password, req.NewPassword); err != nil {
		h.respondServiceError(w, logger, "change password", err)
		return
	}

	httputil.RespondMessage(w, "Password changed.", http.StatusOK)
}

// RequestPasswordReset handles reset requests
// @Summary      Request password reset
// @Description  Email a reset token to a verified account. An unverified account is deleted as an abandoned signup.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetRequest true "Account email"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.MessageResponse "Account not found or not verified"
// @Failure      502 {object} httputil.MessageResponse "Reset email could not be sent"
// @Router       /auth/reset [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondServiceError(w, logger, "request password reset", err)
		return
	}

	httputil.RespondMessage(w, "Password reset email sent.", http.StatusOK)
}

// Status returns the account summary
// @Summary      Account status
// @Description  Return the authenticated account's public summary.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} StatusResponse
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /auth/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	subject, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, StatusResponse{
		Name:         subject.Name,
		Email:        subject.Email,
		RegisteredAt: subject.RegisteredAt,
		ID:           subject.ID,
	}, http.StatusOK)
}

// respondServiceError maps service errors to the HTTP taxonomy. Codec and
// revocation details never reach the caller beyond a generic invalid-token.
func (h *Handler) respondServiceError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	switch {
	case errors.Is(err, user.ErrDuplicateEmail):
		logger.Warn(op+" failed: duplicate email")
		httputil.RespondError(w, "email already exists", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidLogin):
		logger.Warn(op + " failed: invalid credentials")
		httputil.RespondError(w, "invalid email or password", http.StatusBadRequest)
	case errors.Is(err, ErrNotVerified):
		logger.Warn(op + " failed: email not verified")
		httputil.RespondError(w, "email not verified", http.StatusBadRequest)
	case errors.Is(err, ErrAccountNotFound):
		logger.Warn(op + " failed: account not found")
		httputil.RespondError(w, "account not found", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidToken):
		logger.Warn(op + " failed: invalid token")
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
	case errors.Is(err, ErrNotificationFailure):
		logger.Error(op + " failed: notification failure")
		httputil.RespondError(w, "failed to send email, please try again", http.StatusBadGateway)
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrInvalidEmailFormat),
		errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrPasswordTooShort):
		logger.Warn(op+" failed: validation error", "error", err.Error())
		httputil.RespondError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error(op+" failed: internal error", "error", err.Error())
		httputil.RespondError(w, "internal server error", http.StatusInternalServerError)
	}
}
