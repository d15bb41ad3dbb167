package handler

import (
	"encoding/json"
	"net/http"

	"github.com/horizons-hq/horizons-api/internal/application/flows"
	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/horizons-hq/horizons-api/internal/pkg/validate"
)

// UserHandler handles admin user creation and invite completion.
type UserHandler struct {
	invites *flows.InviteService
}

func NewUserHandler(invites *flows.InviteService) *UserHandler {
	return &UserHandler{invites: invites}
}

// Create provisions a user and sends the invite email. Calling it again for
// the same address re-invites.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	p, err := h.invites.CreateOrReinvite(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProfileEnvelope{Profile: p, Message: "invitation sent"})
}

type completeInviteRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// CompleteInvite turns a valid invite token into a password and, when
// possible, a signed-in session.
func (h *UserHandler) CompleteInvite(w http.ResponseWriter, r *http.Request) {
	var req completeInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.invites.Complete(r.Context(), req.Email, req.Token, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	env := AuthEnvelope{Profile: res.Profile, Message: "account activated"}
	if res.Auth != nil {
		env.AccessToken = res.Auth.Bearer
		env.RefreshToken = res.Auth.RefreshToken
	}
	writeJSON(w, http.StatusOK, env)
}
