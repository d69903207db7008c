package auth

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler exposes the login endpoint.
type Handler struct {
	Service *Service
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, "invalid request body", nil)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
