package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"
	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/notify"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/metrics"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeDispatcher struct {
	calls   int
	got     []string
	content string
	sum     dispatch.Summary
	err     error
	panics  bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, recipients []string, content string) (dispatch.Summary, error) {
	if f.panics {
		panic("dispatcher blew up")
	}
	f.calls++
	f.got = recipients
	f.content = content
	return f.sum, f.err
}

func sentSummary(recipients ...string) dispatch.Summary {
	var rs []dispatch.Result
	for _, r := range recipients {
		rs = append(rs, dispatch.Result{Recipient: r, Status: dispatch.StatusSent, ProviderID: "id-" + r})
	}
	return dispatch.Summarize(rs, "email", "emails")
}

func postJSON(t *testing.T, srv *http.Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestSendEmails_OK(t *testing.T) {
	email := &fakeDispatcher{sum: sentSummary("a@x.com", "b@x.com")}
	srv := NewHTTPServer(":0", &Handlers{Email: email, SMS: &fakeDispatcher{}}, nil)

	rr := postJSON(t, srv, "/send-emails", `{"emails":["a@x.com","b@x.com"],"content":"Hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", rr.Code, rr.Body.String())
	}
	var resp notify.SendResp[notify.EmailResult]
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Sent != 2 || resp.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", resp)
	}
	if resp.Message != "Sent 2 emails successfully." {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if len(resp.Results) != 2 || resp.Results[1].Email != "b@x.com" || resp.Results[1].ID != "id-b@x.com" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if email.content != "Hi" || len(email.got) != 2 {
		t.Fatalf("dispatcher got %v / %q", email.got, email.content)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestSendSMS_PartialFailure(t *testing.T) {
	sum := dispatch.Summarize([]dispatch.Result{
		{Recipient: "+12025550123", Status: dispatch.StatusSent, ProviderID: "SM1"},
		{Recipient: "+12025550124", Status: dispatch.StatusFailed, Error: "The 'To' number is not a valid phone number.", Code: 21211},
	}, "SMS message", "SMS messages")
	sms := &fakeDispatcher{sum: sum}
	srv := NewHTTPServer(":0", &Handlers{Email: &fakeDispatcher{}, SMS: sms}, nil)

	rr := postJSON(t, srv, "/send-sms", `{"phoneNumbers":["+12025550123","+12025550124"],"content":"Hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", rr.Code, rr.Body.String())
	}
	var resp notify.SendResp[notify.SMSResult]
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Sent != 1 || resp.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", resp)
	}
	if r := resp.Results[1]; r.PhoneNumber != "+12025550124" || r.Code != 21211 || r.Status != "failed" {
		t.Fatalf("unexpected failed result: %+v", r)
	}
	if resp.Results[0].SID != "SM1" {
		t.Fatalf("unexpected sid: %q", resp.Results[0].SID)
	}
}

func TestSend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"invalid json", "/send-emails", `{"emails":`, nil, http.StatusBadRequest, "Invalid JSON body"},
		{"validation", "/send-emails", `{"emails":[],"content":"Hi"}`, &dispatch.ValidationError{Msg: "No emails provided"}, http.StatusBadRequest, "No emails provided"},
		{"config", "/send-sms", `{"phoneNumbers":["+12025550123"],"content":"Hi"}`, &dispatch.ConfigError{Msg: "SMS provider is not configured on the server"}, http.StatusInternalServerError, "SMS provider is not configured on the server"},
		{"internal", "/send-sms", `{"phoneNumbers":["+12025550123"],"content":"Hi"}`, errTest("render exploded"), http.StatusInternalServerError, "Internal server error"},
		{"api alias", "/api/send-emails", `{"emails":[],"content":"Hi"}`, &dispatch.ValidationError{Msg: "No emails provided"}, http.StatusBadRequest, "No emails provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tt.err}
			srv := NewHTTPServer(":0", &Handlers{Email: d, SMS: d}, nil)

			rr := postJSON(t, srv, tt.path, tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d (%s)", tt.wantCode, rr.Code, rr.Body.String())
			}
			var resp notify.ErrorResp
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error != tt.wantMsg {
				t.Fatalf("expected error %q, got %q", tt.wantMsg, resp.Error)
			}
		})
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestPanicAnswersJSON(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{Email: &fakeDispatcher{panics: true}, SMS: &fakeDispatcher{}}, nil)

	rr := postJSON(t, srv, "/send-emails", `{"emails":["a@x.com"],"content":"Hi"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"error":"Internal server error"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestCORS(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{Email: &fakeDispatcher{}, SMS: &fakeDispatcher{}}, []string{"http://localhost:3000"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/send-emails", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{}, nil)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestDocsEndpoints(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{}, nil)

	t.Run("html", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/docs", nil)

		srv.Handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "SwaggerUIBundle") {
			t.Fatalf("swagger bundle not rendered: %s", rr.Body.String())
		}
	})

	t.Run("openapi", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/docs/notify-api/openapi.yaml", nil)

		srv.Handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "yaml") {
			t.Fatalf("unexpected content type: %s", ct)
		}
		if !strings.Contains(rr.Body.String(), "openapi: 3.0.3") {
			t.Fatalf("unexpected body: %s", rr.Body.String())
		}
	})
}

func postForm(t *testing.T, srv *http.Server, v url.Values) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestFormPage(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{}, nil)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Count(body, `name="email"`) != 1 || strings.Count(body, `name="phone"`) != 1 {
		t.Fatalf("expected one field per list: %s", body)
	}
	if strings.Contains(body, "remove_email") {
		t.Fatal("single field must not be removable")
	}
}

func TestFormSubmit_AddAndRemove(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{}, nil)

	rr := postForm(t, srv, url.Values{
		"email":  {"a@x.com"},
		"phone":  {""},
		"action": {"add_email"},
	})
	body := rr.Body.String()
	if strings.Count(body, `name="email"`) != 2 {
		t.Fatalf("expected two email fields: %s", body)
	}
	if !strings.Contains(body, `value="a@x.com"`) {
		t.Fatal("typed value lost")
	}

	rr = postForm(t, srv, url.Values{
		"email":  {"a@x.com", "b@x.com"},
		"action": {"remove_email:0"},
	})
	body = rr.Body.String()
	if strings.Count(body, `name="email"`) != 1 || strings.Contains(body, `value="a@x.com"`) {
		t.Fatalf("field 0 not removed: %s", body)
	}
}

func TestFormSubmit_SendGate(t *testing.T) {
	email := &fakeDispatcher{}
	srv := NewHTTPServer(":0", &Handlers{Email: email, SMS: &fakeDispatcher{}}, nil)

	rr := postForm(t, srv, url.Values{
		"email":         {"a@x.com", "nope"},
		"email_content": {"Hi"},
		"action":        {"send"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if email.calls != 0 {
		t.Fatal("dispatcher called for an incomplete form")
	}
}

func TestFormSubmit_Send(t *testing.T) {
	email := &fakeDispatcher{sum: sentSummary("a@x.com", "b@x.com")}
	sms := &fakeDispatcher{}
	srv := NewHTTPServer(":0", &Handlers{Email: email, SMS: sms}, nil)

	rr := postForm(t, srv, url.Values{
		"email":         {"a@x.com", "", "b@x.com"},
		"phone":         {"+12025550123"},
		"email_content": {"Hi"},
		"sms_content":   {"Hi"},
		"action":        {"send"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", rr.Code, rr.Body.String())
	}
	if email.calls != 1 || len(email.got) != 2 {
		t.Fatalf("email dispatcher got %d calls, %v", email.calls, email.got)
	}
	if sms.calls != 0 {
		t.Fatal("sms sent with a single phone number")
	}
	if !strings.Contains(rr.Body.String(), "Sent 2 emails successfully.") {
		t.Fatalf("status not rendered: %s", rr.Body.String())
	}
}

func TestFormSubmit_SendSurvivesDispatcherPanic(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{Email: &fakeDispatcher{panics: true}, SMS: &fakeDispatcher{}}, nil)

	rr := postForm(t, srv, url.Values{
		"email":         {"a@x.com", "b@x.com"},
		"email_content": {"Hi"},
		"action":        {"send"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Failed to send emails: internal error, check server logs.") {
		t.Fatalf("status not rendered: %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "blew up") {
		t.Fatal("panic value leaked to the page")
	}
}

func TestFormSubmit_RemoveWithoutIndex(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{}, nil)

	for _, action := range []string{"remove_email", "remove_email:", "remove_email:x"} {
		rr := postForm(t, srv, url.Values{
			"email":  {"a@x.com", "b@x.com"},
			"action": {action},
		})
		body := rr.Body.String()
		if strings.Count(body, `name="email"`) != 2 || !strings.Contains(body, `value="a@x.com"`) {
			t.Fatalf("%q removed a field: %s", action, body)
		}
	}
}

func TestUnmatchedRouteMetricLabel(t *testing.T) {
	srv := NewHTTPServer(":0", &Handlers{}, nil)
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	before := testutil.ToFloat64(counter)

	for _, p := range []string{"/wp-login.php", "/random/abc123"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", p, rr.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("want 2 requests under %q, got %v", unmatchedRoute, got)
	}
	if n := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/wp-login.php", "404")); n != 0 {
		t.Fatalf("raw path used as label: %v", n)
	}
}
