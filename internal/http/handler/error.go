package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"filevault/internal/http/middleware"
	"filevault/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	status  int
	code    string
	message string
}

// serviceErrors maps service error kinds to fixed responses. Underlying causes are never sent.
var serviceErrors = []struct {
	kind error
	errorMapping
}{
	{service.ErrInvalidInput, errorMapping{fiber.StatusBadRequest, "INVALID_INPUT", "invalid input"}},
	{service.ErrUnauthenticated, errorMapping{fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required"}},
	{service.ErrForbidden, errorMapping{fiber.StatusForbidden, "FORBIDDEN", "not allowed"}},
	{service.ErrNotFound, errorMapping{fiber.StatusNotFound, "NOT_FOUND", "resource not found"}},
	{service.ErrRateLimited, errorMapping{fiber.StatusTooManyRequests, "RATE_LIMITED", "too many requests, try again later"}},
	{service.ErrOTPDispatch, errorMapping{fiber.StatusBadGateway, "OTP_DISPATCH_FAILED", "failed to send one-time code"}},
	{service.ErrSessionCreation, errorMapping{fiber.StatusBadGateway, "SESSION_CREATION_FAILED", "failed to create session"}},
}

var internalError = errorMapping{fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_INPUT", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

func mapServiceError(err error) errorMapping {
	for _, m := range serviceErrors {
		if errors.Is(err, m.kind) {
			return m.errorMapping
		}
	}
	return internalError
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// Service errors are mapped by kind and logged with the request id.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fiber.StatusBadRequest:
				return writeError(c, fe.Code, "BAD_REQUEST", "bad request")
			case fiber.StatusNotFound:
				return writeError(c, fe.Code, "NOT_FOUND", "resource not found")
			case fiber.StatusMethodNotAllowed:
				return writeError(c, fe.Code, "METHOD_NOT_ALLOWED", "method not allowed")
			case fiber.StatusRequestEntityTooLarge:
				return writeError(c, fe.Code, "PAYLOAD_TOO_LARGE", "request body too large")
			default:
				return writeError(c, fe.Code, internalError.code, internalError.message)
			}
		}

		m := mapServiceError(err)
		entry := log.WithError(err).WithFields(logrus.Fields{
			"request_id": requestIDFromCtx(c),
			"status":     m.status,
			"kind":       service.KindOf(err).Error(),
		})
		if m.status >= fiber.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}
		return writeError(c, m.status, m.code, m.message)
	}
}
