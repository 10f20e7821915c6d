package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"
	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/mailtpl"
	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/provider/resend"
	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/provider/ses"
	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/provider/twilio"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/config"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/httpretry"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/tracing"
	"github.com/ninjamovesonly/bulk-notifications-prototype/services/notify-api/server"
)

func main() {
	logx.Init()
	defer logx.Sync()

	config.MustLoadAPI()
	cfg := config.API

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		logx.L().Fatalw("tracing_init_error", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logx.L().Warnw("tracing_shutdown_error", "error", err)
		}
	}()

	httpClient := httpretry.NewHTTPClient(cfg.HTTPTimeout)

	layout, err := mailtpl.New(cfg.Email.HTMLTemplate)
	if err != nil {
		logx.L().Fatalw("email_layout_error", "error", err)
	}

	emailDisp := &dispatch.EmailDispatcher{
		From:    cfg.Email.From,
		Subject: cfg.Email.Subject,
		HTML:    layout,
	}
	switch cfg.Email.Provider {
	case "ses":
		sender, err := ses.New(context.Background(), ses.Options{
			Region:          cfg.Email.SESRegion,
			AccessKeyID:     cfg.Email.SESAccessKeyID,
			SecretAccessKey: cfg.Email.SESSecretAccessKey,
			HTTPClient:      httpClient,
		})
		if err != nil {
			// requests will answer with a configuration error
			logx.L().Errorw("ses_init_error", "error", err)
		} else {
			emailDisp.Sender = sender
		}
	default:
		emailDisp.Sender = resend.New(cfg.Email.APIURL, cfg.Email.APIKey,
			httpretry.New("resend", httpClient, httpretry.WithRetries(cfg.HTTPMaxRetries)))
	}

	smsDisp := &dispatch.SMSDispatcher{
		Sender: twilio.New(cfg.SMS.APIURL, cfg.SMS.AccountSID, cfg.SMS.AuthToken,
			httpretry.New("twilio", httpClient,
				httpretry.WithRetries(cfg.HTTPMaxRetries),
				httpretry.WithRateLimit(cfg.SMS.RatePerSecond),
			)),
		From:               cfg.SMS.From,
		MessagingServiceID: cfg.SMS.MessagingServiceID,
	}

	h := server.NewHandlers(emailDisp, smsDisp)
	srv := server.NewHTTPServer(":"+cfg.Port, h, cfg.CORSOrigins)

	go func() {
		logx.L().Infow("api_listen_start",
			"addr", ":"+cfg.Port,
			"email_provider", cfg.Email.Provider,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.L().Fatalw("http_server_error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logx.L().Infow("signal_received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logx.L().Errorw("server_shutdown_error", "error", err)
	} else {
		logx.L().Infow("server_shutdown_success")
	}

	logx.L().Infow("notify-api stopped gracefully")
}
