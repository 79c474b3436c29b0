package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/pkg/types"
)

func newTestVerifier(verifyURL, secret string) *Verifier {
	return NewVerifier(configtypes.CaptchaConfig{
		SecretKey: secret,
		VerifyURL: verifyURL,
		Timeout:   types.Duration(2 * time.Second),
	}, zap.NewNop())
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		expectErr error
	}{
		{name: "accepted", status: http.StatusOK, body: `{"success":true,"hostname":"example.com"}`},
		{name: "rejected", status: http.StatusOK, body: `{"success":false,"error-codes":["invalid-input-response"]}`, expectErr: ErrRejected},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, expectErr: ErrUnavailable},
		{name: "malformed body", status: http.StatusOK, body: `{not json`, expectErr: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var form url.Values
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				form = r.PostForm
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newTestVerifier(srv.URL, "s3cret").Verify(context.Background(), "tok", "203.0.113.4")
			if tt.expectErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectErr)
			}

			assert.Equal(t, "s3cret", form.Get("secret"))
			assert.Equal(t, "tok", form.Get("response"))
			assert.Equal(t, "203.0.113.4", form.Get("remoteip"))
		})
	}
}

func TestVerify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := newTestVerifier(addr, "s3cret").Verify(context.Background(), "tok", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestVerify_MissingSecret(t *testing.T) {
	err := newTestVerifier("http://127.0.0.1:1", "").Verify(context.Background(), "tok", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestVerify_ExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	err := newTestVerifier("http://127.0.0.1:1", "s3cret").Verify(ctx, "tok", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}
