package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aroussel/garage-api/services"
)

// statusForCode maps domain error codes to HTTP statuses
var statusForCode = map[string]int{
	services.CodeInvalidSelection:    http.StatusBadRequest,
	services.CodeIllegalTransition:   http.StatusConflict,
	services.CodeSlotUnavailable:     http.StatusConflict,
	services.CodePreconditionNotMet:  http.StatusConflict,
	services.CodeDeadlineExceeded:    http.StatusConflict,
	services.CodeOverpaymentRejected: http.StatusBadRequest,
	services.CodeDuplicateInvoice:    http.StatusConflict,
	services.CodePermissionDenied:    http.StatusForbidden,
	services.CodeNotFound:            http.StatusNotFound,
}

// respondError translates a service failure into the JSON error envelope.
// Typed domain failures surface their code and message; anything else is
// an infrastructure error the client only sees generically.
func respondError(c *gin.Context, err error) {
	if code := services.CodeOf(err); code != "" {
		c.JSON(statusForCode[code], gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An unexpected error occurred",
		},
	})
}

// respondForbidden is the uniform refusal sent when the permission
// predicate rejects the actor
func respondForbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    services.CodePermissionDenied,
			"message": "You are not allowed to perform this operation",
		},
	})
}

// respondValidationError reports a malformed request body
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// parseIDParam reads a numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid " + name + " parameter",
			},
		})
		return 0, false
	}
	return uint(id), true
}
