package dispatch

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/metrics"
)

const invalidPhoneDetail = "Invalid phone number format. Use E.164, e.g. +12025550123"

// SMSMessage is a single outbound text. Exactly one of From and
// MessagingServiceID is set.
type SMSMessage struct {
	To                 string
	Body               string
	From               string
	MessagingServiceID string
}

type SMSSender interface {
	Name() string
	Send(ctx context.Context, msg SMSMessage) (string, error)
}

type SMSDispatcher struct {
	Sender             SMSSender
	From               string
	MessagingServiceID string
}

func (d *SMSDispatcher) Dispatch(ctx context.Context, phoneNumbers []string, content string) (Summary, error) {
	if len(phoneNumbers) == 0 {
		return Summary{}, &ValidationError{Msg: "No phone numbers provided"}
	}
	if strings.TrimSpace(content) == "" {
		return Summary{}, &ValidationError{Msg: "No content provided"}
	}
	from, serviceID, err := d.identity()
	if err != nil {
		return Summary{}, err
	}

	ctx, span := tracer.Start(ctx, "dispatch.sms", trace.WithAttributes(
		attribute.String("provider", d.Sender.Name()),
		attribute.Int("recipients", len(phoneNumbers)),
	))
	defer span.End()

	results := make([]Result, 0, len(phoneNumbers))
	for _, raw := range phoneNumbers {
		to := NormalizePhone(raw)
		if !ValidE164(to) {
			logx.L().Infow("sms_invalid_number", "to", logx.Redact(to))
			results = append(results, Result{Recipient: raw, Status: StatusFailed, Error: invalidPhoneDetail})
			continue
		}

		msg := SMSMessage{To: to, Body: content}
		if serviceID != "" {
			msg.MessagingServiceID = serviceID
		} else {
			msg.From = from
		}

		id, err := d.Sender.Send(ctx, msg)
		if err != nil {
			r := Result{Recipient: raw, Status: StatusFailed, Error: NetworkError}
			var pe *ProviderError
			if errors.As(err, &pe) {
				r.Error = pe.Detail()
				r.Code = pe.Code
			}
			logx.L().Warnw("sms_send_failed",
				"provider", d.Sender.Name(),
				"to", logx.Redact(to),
				"error", err,
			)
			results = append(results, r)
			continue
		}
		results = append(results, Result{Recipient: raw, Status: StatusSent, ProviderID: id})
	}

	sum := Summarize(results, "SMS message", "SMS messages")
	metrics.DispatchRecipientsTotal.WithLabelValues("sms", string(StatusSent)).Add(float64(sum.Sent))
	metrics.DispatchRecipientsTotal.WithLabelValues("sms", string(StatusFailed)).Add(float64(sum.Failed))
	span.SetAttributes(attribute.Int("sent", sum.Sent), attribute.Int("failed", sum.Failed))
	logx.L().Infow("sms_dispatch_done", "sent", sum.Sent, "failed", sum.Failed)
	return sum, nil
}

// identity resolves the sending identity. A messaging service id wins over
// a sender number; a lone sender number must be E.164.
func (d *SMSDispatcher) identity() (from, serviceID string, err error) {
	if d.Sender == nil {
		return "", "", &ConfigError{Msg: "SMS provider is not configured on the server"}
	}
	if c, ok := d.Sender.(configChecker); ok {
		if err := c.CheckConfig(); err != nil {
			return "", "", &ConfigError{Msg: err.Error()}
		}
	}

	serviceID = strings.TrimSpace(d.MessagingServiceID)
	if serviceID != "" {
		return "", serviceID, nil
	}

	from = NormalizePhone(d.From)
	switch {
	case from == "":
		return "", "", &ConfigError{Msg: "SMS sender number or messaging service ID is not configured on the server"}
	case IsMessagingServiceID(from):
		return "", "", &ConfigError{Msg: "SMS sender number looks like a messaging service ID; configure it as the messaging service ID instead"}
	case !ValidE164(from):
		return "", "", &ConfigError{Msg: "SMS sender number must be in E.164 format, e.g. +12025550123"}
	}
	return from, "", nil
}
