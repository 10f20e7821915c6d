package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ninjamovesonly/bulk-notifications-prototype/docs"
	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"
	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/notify"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
)

// dispatchTimeout bounds one endpoint call; provider requests inside it are
// sequential.
const dispatchTimeout = 2 * time.Minute

type dispatcherAPI interface {
	Dispatch(ctx context.Context, recipients []string, content string) (dispatch.Summary, error)
}

type Handlers struct {
	Email dispatcherAPI
	SMS   dispatcherAPI
}

func NewHandlers(email *dispatch.EmailDispatcher, sms *dispatch.SMSDispatcher) *Handlers {
	return &Handlers{Email: email, SMS: sms}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handlers) Docs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", docs.NotifySwaggerHTML)
}

func (h *Handlers) OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", docs.NotifyOpenAPI)
}

func (h *Handlers) SendEmails(c *gin.Context) {
	var req notify.SendEmailsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, notify.ErrorResp{Error: "Invalid JSON body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dispatchTimeout)
	defer cancel()

	sum, err := h.Email.Dispatch(ctx, req.Emails, req.Content)
	if err != nil {
		writeDispatchError(c, "email", err)
		return
	}
	c.JSON(http.StatusOK, notify.EmailResponse(sum))
}

func (h *Handlers) SendSMS(c *gin.Context) {
	var req notify.SendSMSReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, notify.ErrorResp{Error: "Invalid JSON body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dispatchTimeout)
	defer cancel()

	sum, err := h.SMS.Dispatch(ctx, req.PhoneNumbers, req.Content)
	if err != nil {
		writeDispatchError(c, "sms", err)
		return
	}
	c.JSON(http.StatusOK, notify.SMSResponse(sum))
}

func writeDispatchError(c *gin.Context, channel string, err error) {
	var ve *dispatch.ValidationError
	var ce *dispatch.ConfigError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, notify.ErrorResp{Error: ve.Msg})
	case errors.As(err, &ce):
		logx.L().Errorw("dispatch_config_error", "channel", channel, "error", err)
		c.JSON(http.StatusInternalServerError, notify.ErrorResp{Error: ce.Msg})
	default:
		logx.L().Errorw("dispatch_error", "channel", channel, "error", err)
		c.JSON(http.StatusInternalServerError, notify.ErrorResp{Error: "Internal server error"})
	}
}
