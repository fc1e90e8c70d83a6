package profile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/redmonkez12/account-service/internal/auth"
	"github.com/redmonkez12/account-service/internal/httputil"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/user"
)

// Store is the slice of the user repository the profile surface needs
type Store interface {
	Update(ctx context.Context, u *user.User) error
}

// Handler serves the authenticated user's profile
type Handler struct {
	users Store
}

func NewHandler(users Store) *Handler {
	return &Handler{users: users}
}

// Profile is the profile read/write body. Optional fields render as empty
// strings, never null.
type Profile struct {
	Name     string `json:"name"`
	Pronouns string `json:"pronouns"`
	URL      string `json:"url"`
	Location string `json:"location"`
	Bio      string `json:"bio"`
}

// GetOwn returns the authenticated user's profile
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} Profile
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /profile/@me [get]
func (h *Handler) GetOwn(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, Profile{
		Name:     subject.Name,
		Pronouns: deref(subject.Pronouns),
		URL:      deref(subject.URL),
		Location: deref(subject.Location),
		Bio:      deref(subject.Bio),
	}, http.StatusOK)
}

// EditOwn replaces the authenticated user's profile fields
// @Summary      Edit own profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body Profile true "Profile fields"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.MessageResponse "Validation error"
// @Failure      401 {object} httputil.MessageResponse "Invalid token"
// @Router       /profile/@me [post]
func (h *Handler) EditOwn(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	subject, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var req Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		httputil.RespondError(w, "name is required", http.StatusBadRequest)
		return
	}

	subject.Name = req.Name
	subject.Pronouns = optional(req.Pronouns)
	subject.URL = optional(req.URL)
	subject.Location = optional(req.Location)
	subject.Bio = optional(req.Bio)

	if err := h.users.Update(r.Context(), subject); err != nil {
		logger.Error("failed to update profile", "user_id", subject.ID, "error", err.Error())
		httputil.RespondError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("profile updated", "user_id", subject.ID)

	httputil.RespondMessage(w, "profile updated", http.StatusOK)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
