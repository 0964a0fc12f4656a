package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// HandlePaymentWebhook feeds one raw provider delivery to the webhook
// service. The body is passed through untouched so signatures verify.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	start := time.Now()
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	ctx := ctxlogger.ContextWithProvider(c.Request.Context(), provider)
	c.Request = c.Request.WithContext(ctx)
	defer func() {
		s.httpMetrics.RecordWebhookDelivery(provider, c.Writer.Status(), time.Since(start))
	}()

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}

	err = s.webhooks.IngestWebhook(ctx, provider, payload, c.Request.Header)
	if err != nil {
		ctxlogger.WithContext(ctx, s.log).Warn("payment webhook not acknowledged", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz checks the ledger database and the gateway credentials.
func (s *Server) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if err := s.pingDB(ctx); err != nil {
		ready = false
		checks["database"] = err.Error()
	} else {
		checks["database"] = "ok"
	}

	if err := s.gateway.Ready(ctx); err != nil {
		ready = false
		checks["gateway"] = err.Error()
	} else {
		checks["gateway"] = "ok"
	}

	status := http.StatusOK
	body := gin.H{"status": "ok", "provider": s.gateway.Name(), "checks": checks}
	if !ready {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}
	c.JSON(status, body)
}

func (s *Server) pingDB(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
