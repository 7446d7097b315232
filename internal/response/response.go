package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope every REST endpoint answers with.
type Response struct {
	Data     any        `json:"data"`
	Error    *ErrorBody `json:"error,omitempty"`
	Page     *Page      `json:"page,omitempty"`
	Metadata Metadata   `json:"metadata"`
}

// ErrorBody carries a stable code, a human message and, for validation
// failures, per-field messages keyed by JSON field name.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Page describes a bounded list: the limit applied and how many items came back.
type Page struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// Metadata ties a response to its request.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
}

// Success sends data with the given status.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Data: data, Metadata: buildMetadata(c)})
}

// SuccessList sends a list along with the limit that produced it.
func SuccessList[T any](c *gin.Context, statusCode int, items []T, limit int) {
	if items == nil {
		items = []T{}
	}
	c.JSON(statusCode, Response{
		Data:     items,
		Page:     &Page{Limit: limit, Count: len(items)},
		Metadata: buildMetadata(c),
	})
}

// Fail sends an error code with its default message.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, failure(c, code, nil))
}

// FailWithFields sends a validation-style error with per-field messages.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, failure(c, code, fields))
}

// AbortFail stops the handler chain and sends an error. Middleware uses it.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, failure(c, code, nil))
}

func failure(c *gin.Context, code ErrCode, fields map[string]string) Response {
	return Response{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields},
		Metadata: buildMetadata(c),
	}
}

func buildMetadata(c *gin.Context) Metadata {
	now := time.Now()
	md := Metadata{Timestamp: now.UTC().Format(time.RFC3339)}

	if id, ok := c.Get(ContextKeyRequestID); ok {
		md.RequestID, _ = id.(string)
	}
	if md.RequestID == "" {
		md.RequestID = uuid.New().String()
	}
	if v, ok := c.Get(contextKeyStartedAt); ok {
		if started, ok := v.(time.Time); ok {
			md.ElapsedMS = now.Sub(started).Milliseconds()
		}
	}
	return md
}
