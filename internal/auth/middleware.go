package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/sha1n/mcp-repo-radar/internal/config"
)

// APIKeyHeader is the header carrying an API key
const APIKeyHeader = "X-API-Key"

// excludedPaths bypass authentication
var excludedPaths = map[string]bool{
	"/health": true,
}

func isExcludedPath(path string) bool {
	return excludedPaths[path]
}

// NewMiddleware creates an authentication middleware from settings
func NewMiddleware(settings config.AuthSettings) (func(http.Handler) http.Handler, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return withExclusions(basicAuthMiddleware(settings.Basic)), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return withExclusions(apiKeyMiddleware(settings.APIKeys)), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

func withExclusions(authMiddleware func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authedHandler := authMiddleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExcludedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			authedHandler.ServeHTTP(w, r)
		})
	}
}

func basicAuthMiddleware(settings config.BasicAuthSettings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(settings.Username)) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(settings.Password)) == 1
			if !ok || !userMatch || !passMatch {
				w.Header().Set("WWW-Authenticate", `Basic realm="radar-mcp"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestKey returns the key from X-API-Key, falling back to an
// "Authorization: Bearer" header.
func requestKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func validKey(key string, apiKeys []string) bool {
	valid := false
	for _, k := range apiKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
			valid = true
		}
	}
	return valid
}

func apiKeyMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r)
			if key == "" || !validKey(key, apiKeys) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
