package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"
	HRequestID    = "X-Request-Id"

	HHxRequest  = "Hx-Request"
	HHxRedirect = "Hx-Redirect"

	CTypeHTML = "text/html; charset=utf-8"
	CTypeText = "text/plain; charset=utf-8"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)
