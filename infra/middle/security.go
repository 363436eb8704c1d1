package middle

import (
	"mime"
	"net/http"
	"strings"

	"github.com/Sammk21/medusa-admin/infra/config"
	"github.com/Sammk21/medusa-admin/infra/response"
)

// MaxRequestBodyBytes bounds the size of any accepted request body
const MaxRequestBodyBytes = 1 << 20

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
}

// SecurityHeadersMiddleware sets the hardening headers of a JSON only API
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPWhitelistMiddleware restricts access to the comma separated IPs in IP_WHITELIST.
// The variable is read per request; an empty list admits everyone.
func IPWhitelistMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := parseIPList(config.GetEnv("IP_WHITELIST", ""))
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := allowed[GetClientIP(r)]; !ok {
				response.Error(w, http.StatusForbidden, "IP not whitelisted", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseIPList(raw string) map[string]struct{} {
	ips := make(map[string]struct{})
	for ip := range strings.SplitSeq(raw, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips[ip] = struct{}{}
		}
	}
	return ips
}

// RequestValidationMiddleware requires a JSON content type on requests with a body and caps the body size
func RequestValidationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if carriesBody(r.Method) {
				status, msg := checkJSONContentType(r.Header.Get("Content-Type"))
				if status != 0 {
					response.Error(w, status, msg, nil)
					return
				}
			}

			if r.ContentLength > MaxRequestBodyBytes {
				response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// checkJSONContentType returns a non-zero status when contentType is not JSON
func checkJSONContentType(contentType string) (int, string) {
	if contentType == "" {
		return http.StatusBadRequest, "Content-Type header is required"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return http.StatusUnsupportedMediaType, "Content-Type must be application/json"
	}
	return 0, ""
}
