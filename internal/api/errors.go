package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lab-allocation-backend/internal/model"
)

var statusByCode = map[string]int{
	"invalid_argument":   http.StatusBadRequest,
	"unauthenticated":    http.StatusUnauthorized,
	"permission_denied":  http.StatusForbidden,
	"not_found":          http.StatusNotFound,
	"invalid_transition": http.StatusConflict,
	"conflict":           http.StatusConflict,
	"unavailable":        http.StatusServiceUnavailable,
}

// respondError writes err as {"error", "code"[, "systems"]} with the status its class maps to.
func respondError(c *gin.Context, err error) {
	code := model.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": err.Error(), "code": code}
	var unavailable *model.UnavailableSystemsError
	if errors.As(err, &unavailable) {
		body["systems"] = unavailable.IDs
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_argument"})
}
