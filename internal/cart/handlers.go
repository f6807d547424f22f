package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartcanteen/backend-canteen/internal/common"
)

// Handler exposes the authenticated cart endpoints.
type Handler struct {
	Service *Service
}

type qtyRequest struct {
	Qty int32 `json:"qty"`
}

// Get handles GET /api/v1/user/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	view, err := h.Service.Get(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Add handles POST /api/v1/user/cart/{productId}.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	qty := int32(1)
	if r.Body != nil && r.ContentLength != 0 {
		var req qtyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request payload", nil)
			return
		}
		if req.Qty != 0 {
			qty = req.Qty
		}
	}
	if err := h.Service.Add(r.Context(), session.UserID, chi.URLParam(r, "productId"), qty); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.Service.Get(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetQty handles PATCH /api/v1/user/cart/{productId}.
func (h *Handler) SetQty(w http.ResponseWriter, r *http.Request) {
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	var req qtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request payload", nil)
		return
	}
	if err := h.Service.SetQty(r.Context(), session.UserID, chi.URLParam(r, "productId"), req.Qty); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.Service.Get(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Remove handles DELETE /api/v1/user/cart/{productId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	if err := h.Service.Remove(r.Context(), session.UserID, chi.URLParam(r, "productId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal server error", nil)
}
