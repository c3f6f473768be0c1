package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"balance-game-backend/internal/services"
)

type bindMessages map[string]map[string]string

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": resolveBindError(err, messages, fallback),
			"code":  "INVALID_ARGUMENT",
		})
		return false
	}
	return true
}

func bindURI(c *gin.Context, req any, messages bindMessages) bool {
	if err := c.ShouldBindUri(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": resolveBindError(err, messages, "Invalid path"),
			"code":  "INVALID_ARGUMENT",
		})
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any, messages bindMessages) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": resolveBindError(err, messages, "Invalid query"),
			"code":  "INVALID_ARGUMENT",
		})
		return false
	}
	return true
}

func resolveBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "invalid request"
}

// respondError reports a ledger or bank failure with its stable code.
func respondError(c *gin.Context, err error) {
	code := services.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case "INVALID_ARGUMENT", "ZERO_STAKE":
		status = http.StatusBadRequest
	case "GAME_NOT_FOUND", "NO_STAKE_FOUND":
		status = http.StatusNotFound
	case "GAME_CLOSED", "GAME_NOT_ENDED", "ALREADY_CLAIMED":
		status = http.StatusConflict
	case "NOT_A_WINNER":
		status = http.StatusForbidden
	case "POOL_OVERFLOW":
		status = http.StatusUnprocessableEntity
	case "INSUFFICIENT_FUNDS":
		status = http.StatusPaymentRequired
	case "LEDGER_HALTED":
		status = http.StatusServiceUnavailable
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		message = "Internal error"
	}
	c.JSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
