package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// respondError maps service errors to the API error taxonomy. Anything
// unrecognised is logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrValidation):
		utils.Error(c, 400, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, utils.ErrInvalidStatus):
		utils.Error(c, 400, "INVALID_STATUS", "Invalid status")
	case errors.Is(err, utils.ErrCannotDeleteSelf), errors.Is(err, utils.ErrLastAdmin):
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.Error(c, 401, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, utils.ErrProductNotFound),
		errors.Is(err, utils.ErrOrderNotFound),
		errors.Is(err, utils.ErrRequestNotFound),
		errors.Is(err, utils.ErrUserNotFound):
		utils.Error(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, utils.ErrDuplicateUsername):
		utils.Error(c, 409, "DUPLICATE_USERNAME", err.Error())
	case errors.Is(err, utils.ErrTransitionNotAllowed):
		utils.Error(c, 409, "TRANSITION_NOT_ALLOWED", err.Error())
	case errors.Is(err, utils.ErrDuplicateSubmission):
		utils.Error(c, 409, "DUPLICATE_SUBMISSION", err.Error())
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString(utils.RequestIDKey)).
			Str("path", c.Request.URL.Path).
			Msg("Unhandled error")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}

// bindJSON binds the body with gin validation tags and writes a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// bindStrictJSON decodes the body rejecting unknown fields and trailing data.
func bindStrictJSON(c *gin.Context, dst any) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	if dec.More() {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body: unexpected data after JSON object")
		return false
	}
	return true
}
