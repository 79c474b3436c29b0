package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const (
	// Header carries the request id in both directions
	Header = "X-Request-ID"
	// MaxRequestIDLength matches the length of a UUID
	MaxRequestIDLength = 36
	// PrefixLength is the length of the random prefix
	PrefixLength = 5
	// MaxCustomIDLength is 36 total - 5 prefix - 1 hyphen
	MaxCustomIDLength = MaxRequestIDLength - PrefixLength - 1

	userValueKey = "request_id"
)

var (
	sanitizeRegex           = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	consecutiveHyphensRegex = regexp.MustCompile(`-+`)
)

// GenerateRequestID derives a request id from an optional caller-supplied
// value. The value is reduced to [a-zA-Z0-9-] and prefixed with 5 random hex
// characters. An empty result falls back to a UUID.
func GenerateRequestID(customID string) string {
	sanitized := strings.ReplaceAll(customID, " ", "-")
	sanitized = sanitizeRegex.ReplaceAllString(sanitized, "")
	sanitized = consecutiveHyphensRegex.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")

	if sanitized == "" {
		return uuid.New().String()
	}

	if len(sanitized) > MaxCustomIDLength {
		sanitized = sanitized[:MaxCustomIDLength]
	}

	return generateRandomPrefix() + "-" + sanitized
}

// FromRequest returns the id assigned to ctx, assigning one on first use.
// The id is echoed on the response.
func FromRequest(ctx *fasthttp.RequestCtx) string {
	if id, ok := ctx.UserValue(userValueKey).(string); ok && id != "" {
		return id
	}

	id := GenerateRequestID(string(ctx.Request.Header.Peek(Header)))
	ctx.SetUserValue(userValueKey, id)
	ctx.Response.Header.Set(Header, id)
	return id
}

func generateRandomPrefix() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(bytes)[:PrefixLength]
}
