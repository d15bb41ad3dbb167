package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/horizons-hq/horizons-api/internal/application/flows"
	"github.com/horizons-hq/horizons-api/internal/pkg/validate"
)

// SignatureLinkHandler mints and validates the public CRA signing links.
type SignatureLinkHandler struct {
	svc         *flows.SignatureLinkService
	frontendURL string
}

func NewSignatureLinkHandler(svc *flows.SignatureLinkService, frontendURL string) *SignatureLinkHandler {
	return &SignatureLinkHandler{svc: svc, frontendURL: frontendURL}
}

type createSignatureLinkRequest struct {
	UserID string `json:"user_id" validate:"required"`
	CRAID  string `json:"cra_id" validate:"required"`
}

// SignatureLinkEnvelope wraps a freshly minted link.
type SignatureLinkEnvelope struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// SignatureLinkTarget is what a valid token resolves to.
type SignatureLinkTarget struct {
	UserID string `json:"user_id"`
	CRAID  string `json:"cra_id"`
}

func (h *SignatureLinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSignatureLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	token, err := h.svc.Issue(r.Context(), req.UserID, req.CRAID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SignatureLinkEnvelope{
		Token: token,
		URL:   fmt.Sprintf("%s/sign-cra?token=%s", h.frontendURL, token),
	})
}

func (h *SignatureLinkHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}
	userID, craID, err := h.svc.Resolve(r.Context(), token)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SignatureLinkTarget{UserID: userID, CRAID: craID})
}
