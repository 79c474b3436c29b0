package requestid

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

var uuidPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

func TestGenerateRequestID(t *testing.T) {
	tests := []struct {
		name          string
		customID      string
		expectUUID    bool
		expectPattern string
	}{
		{name: "empty custom ID returns UUID", customID: "", expectUUID: true},
		{name: "only special characters returns UUID", customID: "@#$%^&*()", expectUUID: true},
		{name: "simple custom ID", customID: "submit-form", expectPattern: `^[a-f0-9]{5}-submit-form$`},
		{name: "special characters removed", customID: "form@acme#1!", expectPattern: `^[a-f0-9]{5}-formacme1$`},
		{name: "spaces become hyphens", customID: "acme plumbing 1", expectPattern: `^[a-f0-9]{5}-acme-plumbing-1$`},
		{name: "hyphen runs collapsed and trimmed", customID: "---a-----b---", expectPattern: `^[a-f0-9]{5}-a-b$`},
		{name: "long custom ID truncated", customID: strings.Repeat("a", 100), expectPattern: `^[a-f0-9]{5}-a{30}$`},
		{name: "mixed case preserved", customID: "Acme-123", expectPattern: `^[a-f0-9]{5}-Acme-123$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateRequestID(tt.customID)
			assert.LessOrEqual(t, len(result), MaxRequestIDLength)

			if tt.expectUUID {
				assert.Regexp(t, uuidPattern, result)
				return
			}
			assert.Regexp(t, tt.expectPattern, result)
		})
	}
}

func TestGenerateRequestID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID("same-id")
		require.False(t, seen[id], "duplicate request id %s", id)
		seen[id] = true
	}
}

func TestFromRequest(t *testing.T) {
	t.Run("generates and echoes", func(t *testing.T) {
		ctx := &fasthttp.RequestCtx{}
		id := FromRequest(ctx)

		assert.Regexp(t, uuidPattern, id)
		assert.Equal(t, id, string(ctx.Response.Header.Peek(Header)))
		assert.Equal(t, id, FromRequest(ctx), "id is stable within a request")
	})

	t.Run("uses inbound header", func(t *testing.T) {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.Set(Header, "edge 42")

		assert.Regexp(t, `^[a-f0-9]{5}-edge-42$`, FromRequest(ctx))
	})
}
