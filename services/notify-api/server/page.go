package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/form"
)

type pageData struct {
	Form        *form.Form
	ValidEmails int
	ValidPhones int
	MinEmails   int
	MinPhones   int
	CanSend     bool
	Status      string
	Outcome     *form.Outcome
}

func newPageData(f *form.Form) pageData {
	return pageData{
		Form:        f,
		ValidEmails: len(f.ValidEmails()),
		ValidPhones: len(f.ValidPhones()),
		MinEmails:   form.MinEmails,
		MinPhones:   form.MinPhones,
		CanSend:     f.CanSend(),
	}
}

func (h *Handlers) FormPage(c *gin.Context) {
	c.HTML(http.StatusOK, "form.html", newPageData(form.New()))
}

// FormSubmit handles every button on the page: field add/remove edits the
// lists, "send" runs both dispatchers.
func (h *Handlers) FormSubmit(c *gin.Context) {
	f := form.Restore(
		c.PostFormArray("email"),
		c.PostFormArray("phone"),
		c.PostForm("email_content"),
		c.PostForm("sms_content"),
	)

	action, arg, _ := strings.Cut(c.PostForm("action"), ":")
	idx, err := strconv.Atoi(arg)
	if err != nil {
		// out of range for removeField, so a malformed index edits nothing
		idx = -1
	}

	switch action {
	case "add_email":
		f.AddEmail()
	case "remove_email":
		f.RemoveEmail(idx)
	case "add_phone":
		f.AddPhone()
	case "remove_phone":
		f.RemovePhone(idx)
	case "send":
		h.sendForm(c, f)
		return
	}
	c.HTML(http.StatusOK, "form.html", newPageData(f))
}

func (h *Handlers) sendForm(c *gin.Context, f *form.Form) {
	data := newPageData(f)
	if !f.CanSend() {
		data.Status = "Add at least 2 valid email addresses and the email content before sending."
		c.HTML(http.StatusUnprocessableEntity, "form.html", data)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dispatchTimeout)
	defer cancel()

	ctrl := form.Controller{Email: h.Email, SMS: h.SMS}
	out, err := ctrl.Send(ctx, f)
	if err != nil {
		data.Status = err.Error()
		c.HTML(http.StatusUnprocessableEntity, "form.html", data)
		return
	}
	data.Status = out.Status
	data.Outcome = &out
	c.HTML(http.StatusOK, "form.html", data)
}
