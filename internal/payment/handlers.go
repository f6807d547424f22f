package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smartcanteen/backend-canteen/internal/common"
)

// Handler exposes the payment verification endpoint.
type Handler struct {
	Service *Service
}

// Verify handles POST /api/v1/user/payment/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "payment service not configured", nil)
		return
	}
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	var input VerifyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request payload", nil)
		return
	}
	result, err := h.Service.Verify(r.Context(), session, input)
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
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
