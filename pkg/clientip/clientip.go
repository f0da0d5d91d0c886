// Package clientip resolves the client address of a request behind proxies.
//
// Headers are consulted in this order: CF-Connecting-IP, X-Forwarded-For
// (first valid entry), X-Real-IP, then RemoteAddr. Only deploy behind a
// proxy that overwrites these headers, otherwise clients can spoof them.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// GetIP returns the normalized client IP, or an empty string when none of
// the sources hold a valid address.
func GetIP(r *http.Request) string {
	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// RateLimitKey keys anonymous traffic by client IP.
func RateLimitKey(r *http.Request) string {
	ip := GetIP(r)
	if ip == "" {
		return ""
	}
	return "ip:" + ip
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
