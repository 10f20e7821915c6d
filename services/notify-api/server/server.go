package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/metrics"
)

const serviceName = "notify-api"

//go:embed templates/*.html
var templatesFS embed.FS

// NewHTTPServer wires the router. When corsOrigins is non-empty the JSON
// endpoints are callable from those origins.
func NewHTTPServer(addr string, h *Handlers, corsOrigins []string) *http.Server {
	r := gin.New()
	r.Use(gin.CustomRecovery(recoverJSON), otelgin.Middleware(serviceName), Observability())
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/docs", h.Docs)
	r.GET("/docs/notify-api/openapi.yaml", h.OpenAPI)

	// /api/* keeps the paths older form builds post to.
	for _, prefix := range []string{"", "/api"} {
		r.POST(prefix+"/send-emails", h.SendEmails)
		r.POST(prefix+"/send-sms", h.SendSMS)
	}

	r.GET("/", h.FormPage)
	r.POST("/", h.FormSubmit)

	var handler http.Handler = r
	if len(corsOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		})(r)
	}

	return &http.Server{
		Addr:    addr,
		Handler: handler,
	}
}
