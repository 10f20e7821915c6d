package docs

import _ "embed"

//go:embed notify-api.openapi.yaml
var embeddedNotifyOpenAPI []byte

//go:embed swagger.html
var embeddedNotifySwaggerHTML []byte

// NotifyOpenAPI содержит OpenAPI-спецификацию эндпоинтов рассылки.
var NotifyOpenAPI = embeddedNotifyOpenAPI

// NotifySwaggerHTML содержит HTML-страницу с Swagger UI.
var NotifySwaggerHTML = embeddedNotifySwaggerHTML
