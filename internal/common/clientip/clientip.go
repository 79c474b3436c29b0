package clientip

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

// Unknown is reported when no address can be determined
const Unknown = "Unknown"

// Extract returns the client address from the first configured header that
// holds one, falling back to the connection's remote address.
func Extract(ctx *fasthttp.RequestCtx, headers []string) string {
	if ip := FromHeaders(&ctx.Request.Header, headers); ip != "" {
		return ip
	}
	if addr := ctx.RemoteAddr(); addr != nil {
		if ip := parseRemoteAddr(addr.String()); ip != "" && ip != "0.0.0.0" {
			return ip
		}
	}
	return Unknown
}

// FromHeaders scans headers in order and returns the leftmost address of the
// first non-empty one. Returns "" when none is set.
func FromHeaders(h *fasthttp.RequestHeader, headers []string) string {
	for _, name := range headers {
		value := strings.TrimSpace(string(h.Peek(name)))
		if value == "" {
			continue
		}
		if ip := leftmost(value); ip != "" {
			return ip
		}
	}
	return ""
}

// AppendForwardedFor adds ip to the X-Forwarded-For chain of an outbound request.
func AppendForwardedFor(h *fasthttp.RequestHeader, ip string) {
	if ip == "" || ip == Unknown {
		return
	}
	if prior := strings.TrimSpace(string(h.Peek(fasthttp.HeaderXForwardedFor))); prior != "" {
		h.Set(fasthttp.HeaderXForwardedFor, prior+", "+ip)
		return
	}
	h.Set(fasthttp.HeaderXForwardedFor, ip)
}

func leftmost(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		value = value[:idx]
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return normalizeIP(value)
}

func parseRemoteAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return normalizeIP(addr)
	}
	return normalizeIP(host)
}

func normalizeIP(raw string) string {
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	if idx := strings.IndexByte(raw, '%'); idx >= 0 {
		raw = raw[:idx]
	}
	if ip := net.ParseIP(raw); ip != nil {
		return ip.String()
	}
	return raw
}
