package utils

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
	// RequestIDHeader carries a caller-supplied request id and is echoed back.
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLength = 64
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

// ErrorInfo is the machine-readable part of a failed response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

func Success(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta:    newMeta(c),
	})
}

// Error writes a failed response. errCode is one of the upper-case codes the
// admin UI switches on (VALIDATION_ERROR, NOT_FOUND, ...).
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error:   &ErrorInfo{Code: errCode, Message: message},
		Meta:    newMeta(c),
	})
}

// RequestID returns the id assigned to this request, taking the caller's
// X-Request-ID when it is short and printable, else a fresh uuid prefix.
func RequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if id == "" || len(id) > maxRequestIDLength || strings.ContainsFunc(id, func(r rune) bool { return r < 0x21 || r > 0x7e }) {
		id = uuid.New().String()[:8]
	}
	c.Set(RequestIDKey, id)
	return id
}

func newMeta(c *gin.Context) Meta {
	return Meta{
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
