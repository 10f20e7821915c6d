package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
)

var ErrNotReady = fmt.Errorf("at least %d valid emails and email content are required", MinEmails)

type Dispatcher interface {
	Dispatch(ctx context.Context, recipients []string, content string) (dispatch.Summary, error)
}

type Controller struct {
	Email Dispatcher
	SMS   Dispatcher
}

type Outcome struct {
	Email    dispatch.Summary
	EmailErr error

	SMSAttempted bool
	SMS          dispatch.Summary
	SMSErr       error

	Status string
}

// Send runs the email dispatch and, when the form has enough phone numbers,
// the SMS dispatch. Both run to completion regardless of the other's result.
func (c *Controller) Send(ctx context.Context, f *Form) (Outcome, error) {
	if !f.CanSend() {
		return Outcome{}, ErrNotReady
	}

	var out Outcome
	emails := f.ValidEmails()
	var g errgroup.Group

	g.Go(func() error {
		defer recoverDispatch("email", &out.EmailErr)
		out.Email, out.EmailErr = c.Email.Dispatch(ctx, emails, f.EmailContent)
		return nil
	})

	if f.SMSReady() {
		out.SMSAttempted = true
		phones := f.ValidPhones()
		g.Go(func() error {
			defer recoverDispatch("sms", &out.SMSErr)
			out.SMS, out.SMSErr = c.SMS.Dispatch(ctx, phones, f.SMSContent)
			return nil
		})
	}
	_ = g.Wait()

	out.Status = status(out)
	logx.L().Infow("form_send_done",
		"emails", len(emails),
		"email_ok", out.EmailErr == nil && out.Email.Success,
		"sms_attempted", out.SMSAttempted,
		"sms_ok", out.SMSErr == nil && out.SMS.Success,
	)
	return out, nil
}

// recoverDispatch turns a panic inside a dispatcher goroutine into an error.
// gin's recovery only covers the request goroutine.
func recoverDispatch(channel string, errp *error) {
	if r := recover(); r != nil {
		logx.L().Errorw("dispatch_panic", "channel", channel, "panic", r)
		*errp = fmt.Errorf("%s dispatch panicked: %v", channel, r)
	}
}

func status(o Outcome) string {
	var parts []string
	if o.EmailErr != nil {
		parts = append(parts, "Failed to send emails: "+userMessage(o.EmailErr))
	} else {
		parts = append(parts, o.Email.Message)
	}
	if o.SMSAttempted {
		if o.SMSErr != nil {
			parts = append(parts, "Failed to send SMS: "+userMessage(o.SMSErr))
		} else {
			parts = append(parts, o.SMS.Message)
		}
	}
	return strings.Join(parts, " ")
}

// userMessage hides internal errors behind a generic phrase.
func userMessage(err error) string {
	var ve *dispatch.ValidationError
	var ce *dispatch.ConfigError
	switch {
	case errors.As(err, &ve):
		return ve.Msg + "."
	case errors.As(err, &ce):
		return ce.Msg + "."
	}
	return "internal error, check server logs."
}
