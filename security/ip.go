package security

import (
	"net"
	"net/http"
	"strings"
)

// ProxyConfig describes the reverse proxies in front of the bridge.
type ProxyConfig struct {
	// TrustProxy enables X-Forwarded-For and X-Real-IP. Leave disabled unless
	// every request passes through a proxy that overwrites these headers.
	TrustProxy bool

	// TrustedProxyCount is the number of proxies appended to X-Forwarded-For
	// by infrastructure we control (default: 1).
	TrustedProxyCount int
}

// ClientIP returns the client address of r according to the proxy configuration
func (c ProxyConfig) ClientIP(r *http.Request) string {
	return GetClientIP(r, c.TrustProxy, c.TrustedProxyCount)
}

// GetClientIP extracts the client IP address from the request.
// Forwarding headers are only consulted when trustProxy is set; otherwise the
// TCP peer address is returned.
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := ipFromForwardedFor(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return ipFromRemoteAddr(r.RemoteAddr)
}

// ipFromForwardedFor picks the entry just left of our trusted proxies.
//
//	X-Forwarded-For: "client, proxy2, proxy1", trustedProxyCount=1 -> "proxy2"
//	X-Forwarded-For: "client, proxy2, proxy1", trustedProxyCount=2 -> "client"
//
// When the list is shorter than expected the leftmost entry is used.
func ipFromForwardedFor(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}

	if trustedProxyCount <= 0 {
		trustedProxyCount = 1
	}

	ips := strings.Split(xff, ",")
	idx := len(ips) - trustedProxyCount - 1
	if idx < 0 {
		idx = 0
	}

	return parseIP(ips[idx])
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || net.ParseIP(s) == nil {
		return ""
	}
	return s
}

func ipFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
