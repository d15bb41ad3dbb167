package handler

import (
	"encoding/json"
	"net/http"

	"github.com/horizons-hq/horizons-api/internal/application/flows"
	"github.com/horizons-hq/horizons-api/internal/pkg/validate"
	"github.com/horizons-hq/horizons-api/internal/transport/http/middleware"
)

// EmailChangeHandler handles the two-step email change for the signed-in
// user; the target user always comes from the JWT, never the body.
type EmailChangeHandler struct {
	svc *flows.EmailChangeService
}

func NewEmailChangeHandler(svc *flows.EmailChangeService) *EmailChangeHandler {
	return &EmailChangeHandler{svc: svc}
}

type emailChangeRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
}

type emailChangeConfirm struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (h *EmailChangeHandler) Request(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req emailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.Request(r.Context(), claims.UserID, req.NewEmail); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "confirmation code sent to the new address"})
}

func (h *EmailChangeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req emailChangeConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	p, err := h.svc.Complete(r.Context(), claims.UserID, req.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Profile: p, Message: "email updated"})
}
