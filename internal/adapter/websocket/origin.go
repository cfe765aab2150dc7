package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// NewCheckOrigin returns the origin policy for listener WebSocket connections.
// Allowed: empty origins (non-browser listeners), obs:// origins (OBS browser
// sources), the app's own origin derived from appURL and every entry of
// extraOrigins. Localhost origins are also allowed when isDevelopment is true.
func NewCheckOrigin(appURL string, isDevelopment bool, extraOrigins []string) func(r *http.Request) bool {
	allowed := make([]string, 0, len(extraOrigins)+1)
	if appOrigin := extractOrigin(appURL); appOrigin != "" {
		allowed = append(allowed, appOrigin)
	}
	for _, o := range extraOrigins {
		if origin := extractOrigin(strings.TrimSpace(o)); origin != "" {
			allowed = append(allowed, origin)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		switch {
		case origin == "":
			return true
		case strings.HasPrefix(origin, "obs://"):
			return true
		case slices.Contains(allowed, origin):
			return true
		case isDevelopment && isLocalhostOrigin(origin):
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
