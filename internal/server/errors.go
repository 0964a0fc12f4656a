package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError turns a webhook outcome into the response the provider sees.
// Rejections are 4xx so the provider stops retrying; integration failures
// are 5xx so it retries later.
func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{Type: "invalid_signature", Message: "webhook signature verification failed"}
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return http.StatusBadRequest, errorPayload{Type: "invalid_payload", Message: "webhook payload could not be read"}
	case errors.Is(err, paymentdomain.ErrInvalidEvent):
		return http.StatusBadRequest, errorPayload{Type: "invalid_event", Message: "webhook event is incomplete"}
	case errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrProviderNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "payment provider not found"}
	case errors.Is(err, paymentdomain.ErrWebhookInFlight):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "webhook delivery already in progress"}
	case errors.Is(err, paymentdomain.ErrTimeout):
		return http.StatusGatewayTimeout, errorPayload{Type: "provider_timeout", Message: "payment provider timed out"}
	case errors.Is(err, paymentdomain.ErrTransport),
		errors.Is(err, paymentdomain.ErrDecode),
		errors.Is(err, paymentdomain.ErrProviderUnavailable):
		return http.StatusBadGateway, errorPayload{Type: "provider_unavailable", Message: "payment provider unavailable"}
	case errors.Is(err, paymentdomain.ErrInvalidConfig):
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "payment gateway misconfigured"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if category := paymentdomain.CategoryOf(err); category != "" {
		return payload.Type, string(category)
	}
	return payload.Type, http.StatusText(status)
}
