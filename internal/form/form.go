// Package form holds the state and rules of the bulk send page: two
// editable recipient lists, their loosely valid subsets, and the send gate.
package form

import (
	"strings"
	"unicode/utf8"
)

const (
	MinEmails = 2
	MinPhones = 2
	// minPhoneLen is a cheap pre-filter; E.164 is enforced by the SMS dispatcher.
	minPhoneLen = 10
)

type Form struct {
	Emails       []string
	Phones       []string
	EmailContent string
	SMSContent   string
}

// New returns a form with one empty field in each list.
func New() *Form {
	f := &Form{}
	f.ensureFields()
	return f
}

// Restore rebuilds a form from submitted values.
func Restore(emails, phones []string, emailContent, smsContent string) *Form {
	f := &Form{
		Emails:       emails,
		Phones:       phones,
		EmailContent: emailContent,
		SMSContent:   smsContent,
	}
	f.ensureFields()
	return f
}

// ensureFields restores the one-field minimum after a form is rebuilt from
// a request.
func (f *Form) ensureFields() {
	if len(f.Emails) == 0 {
		f.Emails = []string{""}
	}
	if len(f.Phones) == 0 {
		f.Phones = []string{""}
	}
}

func (f *Form) AddEmail() { f.Emails = append(f.Emails, "") }

func (f *Form) AddPhone() { f.Phones = append(f.Phones, "") }

// RemoveEmail drops field i. The last remaining field is never removed.
func (f *Form) RemoveEmail(i int) { f.Emails = removeField(f.Emails, i) }

func (f *Form) RemovePhone(i int) { f.Phones = removeField(f.Phones, i) }

func (f *Form) UpdateEmail(i int, v string) {
	if i >= 0 && i < len(f.Emails) {
		f.Emails[i] = v
	}
}

func (f *Form) UpdatePhone(i int, v string) {
	if i >= 0 && i < len(f.Phones) {
		f.Phones[i] = v
	}
}

func removeField(fields []string, i int) []string {
	if len(fields) <= 1 || i < 0 || i >= len(fields) {
		return fields
	}
	out := make([]string, 0, len(fields)-1)
	out = append(out, fields[:i]...)
	return append(out, fields[i+1:]...)
}

// ValidEmails keeps non-blank entries containing "@", in order.
func (f *Form) ValidEmails() []string {
	var out []string
	for _, e := range f.Emails {
		if strings.TrimSpace(e) != "" && strings.Contains(e, "@") {
			out = append(out, e)
		}
	}
	return out
}

// ValidPhones keeps non-blank entries of at least ten characters (runes,
// not bytes).
func (f *Form) ValidPhones() []string {
	var out []string
	for _, p := range f.Phones {
		if strings.TrimSpace(p) != "" && utf8.RuneCountInString(p) >= minPhoneLen {
			out = append(out, p)
		}
	}
	return out
}

// CanSend gates the whole send action; SMS is optional.
func (f *Form) CanSend() bool {
	return len(f.ValidEmails()) >= MinEmails && strings.TrimSpace(f.EmailContent) != ""
}

func (f *Form) SMSReady() bool {
	return len(f.ValidPhones()) >= MinPhones && strings.TrimSpace(f.SMSContent) != ""
}
