package checkout

import (
	"errors"
	"net/http"

	"github.com/smartcanteen/backend-canteen/internal/common"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Service *Service
}

// Create handles POST /api/v1/user/order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	out, err := h.Service.Create(r.Context(), session.UserID)
	if err != nil {
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
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}
