package notify

import "github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"

type SendEmailsReq struct {
	Emails  []string `json:"emails"`
	Content string   `json:"content"`
}

type SendSMSReq struct {
	PhoneNumbers []string `json:"phoneNumbers"`
	Content      string   `json:"content"`
}

type EmailResult struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

type SMSResult struct {
	PhoneNumber string `json:"phoneNumber"`
	Status      string `json:"status"`
	SID         string `json:"sid,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        int    `json:"code,omitempty"`
}

type SendResp[R any] struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Message string `json:"message"`
	Results []R    `json:"results"`
}

type ErrorResp struct {
	Error string `json:"error"`
}

func EmailResponse(s dispatch.Summary) SendResp[EmailResult] {
	out := make([]EmailResult, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, EmailResult{
			Email:  r.Recipient,
			Status: string(r.Status),
			ID:     r.ProviderID,
			Error:  r.Error,
		})
	}
	return SendResp[EmailResult]{Success: s.Success, Sent: s.Sent, Failed: s.Failed, Message: s.Message, Results: out}
}

func SMSResponse(s dispatch.Summary) SendResp[SMSResult] {
	out := make([]SMSResult, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, SMSResult{
			PhoneNumber: r.Recipient,
			Status:      string(r.Status),
			SID:         r.ProviderID,
			Error:       r.Error,
			Code:        r.Code,
		})
	}
	return SendResp[SMSResult]{Success: s.Success, Sent: s.Sent, Failed: s.Failed, Message: s.Message, Results: out}
}
