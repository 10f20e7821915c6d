package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/mailtpl"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/metrics"
)

// EmailBatch is one provider request covering every address in To.
type EmailBatch struct {
	From    string
	Subject string
	Text    string
	HTML    string
	To      []string
}

// EmailSender delivers a batch in a single provider call. On success it
// returns provider ids aligned with batch.To; a single id means the whole
// batch shares it.
type EmailSender interface {
	Name() string
	MaxBatch() int
	SendBatch(ctx context.Context, batch EmailBatch) ([]string, error)
}

type HTMLRenderer interface {
	Render(content string) (string, error)
}

// EmailDispatcher sends one request per chunk of recipients. A chunk
// succeeds or fails as a whole: the provider's single answer is applied to
// every address in it.
type EmailDispatcher struct {
	Sender  EmailSender
	From    string
	Subject string
	HTML    HTMLRenderer
}

func (d *EmailDispatcher) Dispatch(ctx context.Context, recipients []string, content string) (Summary, error) {
	if len(recipients) == 0 {
		return Summary{}, &ValidationError{Msg: "No emails provided"}
	}
	if strings.TrimSpace(content) == "" {
		return Summary{}, &ValidationError{Msg: "No content provided"}
	}
	if err := d.checkConfig(); err != nil {
		return Summary{}, err
	}

	renderer := d.HTML
	if renderer == nil {
		renderer = mailtpl.Default()
	}
	html, err := renderer.Render(content)
	if err != nil {
		return Summary{}, fmt.Errorf("render email html: %w", err)
	}

	ctx, span := tracer.Start(ctx, "dispatch.emails", trace.WithAttributes(
		attribute.String("provider", d.Sender.Name()),
		attribute.Int("recipients", len(recipients)),
	))
	defer span.End()

	size := d.Sender.MaxBatch()
	if size <= 0 {
		size = len(recipients)
	}

	results := make([]Result, 0, len(recipients))
	for start := 0; start < len(recipients); start += size {
		end := min(start+size, len(recipients))
		chunk := recipients[start:end]

		ids, err := d.Sender.SendBatch(ctx, EmailBatch{
			From:    d.From,
			Subject: d.Subject,
			Text:    content,
			HTML:    html,
			To:      chunk,
		})
		results = append(results, batchResults(chunk, ids, err)...)

		if err != nil {
			logx.L().Warnw("email_batch_failed",
				"provider", d.Sender.Name(),
				"count", len(chunk),
				"error", err,
			)
			continue
		}
		logx.L().Infow("email_batch_sent", "provider", d.Sender.Name(), "count", len(chunk))
	}

	sum := Summarize(results, "email", "emails")
	metrics.DispatchRecipientsTotal.WithLabelValues("email", string(StatusSent)).Add(float64(sum.Sent))
	metrics.DispatchRecipientsTotal.WithLabelValues("email", string(StatusFailed)).Add(float64(sum.Failed))
	span.SetAttributes(attribute.Int("sent", sum.Sent), attribute.Int("failed", sum.Failed))
	return sum, nil
}

func (d *EmailDispatcher) checkConfig() error {
	if d.Sender == nil {
		return &ConfigError{Msg: "Email provider is not configured on the server"}
	}
	if c, ok := d.Sender.(configChecker); ok {
		if err := c.CheckConfig(); err != nil {
			return &ConfigError{Msg: err.Error()}
		}
	}
	if strings.TrimSpace(d.From) == "" {
		return &ConfigError{Msg: "Email sender address is not configured on the server"}
	}
	return nil
}

func batchResults(chunk, ids []string, err error) []Result {
	out := make([]Result, len(chunk))
	if err != nil {
		detail := NetworkError
		var pe *ProviderError
		if errors.As(err, &pe) {
			detail = pe.Detail()
		}
		for i, addr := range chunk {
			out[i] = Result{Recipient: addr, Status: StatusFailed, Error: detail}
		}
		return out
	}

	for i, addr := range chunk {
		r := Result{Recipient: addr, Status: StatusSent}
		switch {
		case len(ids) == len(chunk):
			r.ProviderID = ids[i]
		case len(ids) == 1:
			r.ProviderID = ids[0]
		}
		out[i] = r
	}
	return out
}
