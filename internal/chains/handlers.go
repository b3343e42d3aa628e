package chains

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tidyops/taskchain/internal/errors"
	"github.com/tidyops/taskchain/internal/logger"
)

// Handler exposes the webhook endpoint the remote platform calls.
type Handler struct {
	dispatcher *Dispatcher
	logger     *logger.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(dispatcher *Dispatcher, logger *logger.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		logger:     logger.WithComponent("webhook-handler"),
	}
}

// HandleWebhook handles GET and POST on the webhook route.
//
// A request carrying a validationToken query parameter is the subscription
// handshake: the token is echoed back as plain text immediately, whatever
// else the request contains. Anything else must be a POST notification
// batch, which is dispatched synchronously. The response is 200 "OK" for
// any structurally valid batch, even when individual rule applications
// failed; retries are the platform's job, not ours.
func (h *Handler) HandleWebhook(c *gin.Context) {
	ctx := logger.WithRequestID(c.Request.Context(), logger.GenerateRequestID())
	log := h.logger.WithContext(ctx)

	if token := c.Query("validationToken"); token != "" {
		log.Info("webhook validation handshake")
		c.String(http.StatusOK, "%s", token)
		return
	}

	if c.Request.Method != http.MethodPost {
		log.Warn("non-handshake request without notification body",
			slog.String("method", c.Request.Method))
		errors.BadRequest(c, "missing validation token", nil)
		return
	}

	var batch NotificationBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		log.Error("failed to parse notification payload",
			slog.String("error", err.Error()))
		errors.Internal(c, "failed to parse notification payload",
			map[string]interface{}{"error": err.Error()})
		return
	}

	log.Info("notification batch received", slog.Int("count", len(batch.Value)))

	result := h.dispatcher.Handle(ctx, batch.Value)

	for _, failure := range result.Failures {
		log.Warn("rule application failed",
			slog.String("resource", failure.Resource),
			slog.String("rule", failure.Rule),
			slog.String("kind", string(errors.KindOf(failure.Err))),
			slog.String("error", failure.Err.Error()))
	}

	c.String(http.StatusOK, "OK")
}
