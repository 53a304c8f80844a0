package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/nanopos/src/services"
	"github.com/username/nanopos/src/utils"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	PIN string `json:"pin"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PIN == "" {
		utils.SendJSONError(w, "PIN is required", http.StatusBadRequest)
		return
	}

	token, err := h.authService.Login(r.Context(), req.PIN)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPIN) {
			utils.SendJSONError(w, "Invalid PIN", http.StatusUnauthorized)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, loginResponse{Token: token}, http.StatusOK)
}
