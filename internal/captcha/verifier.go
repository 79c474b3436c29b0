// Package captcha verifies reCAPTCHA tokens against the siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

var (
	// ErrUnavailable means the verifier could not be reached or answered
	// with something other than a verdict.
	ErrUnavailable = errors.New("captcha verification unavailable")

	// ErrRejected means the verifier answered and the token is not valid.
	ErrRejected = errors.New("reCAPTCHA verification failed")
)

type verifyResponse struct {
	Success     bool     `json:"success"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier posts tokens to the configured siteverify URL.
type Verifier struct {
	client    *fasthttp.Client
	verifyURL string
	secret    string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewVerifier(cfg configtypes.CaptchaConfig, logger *zap.Logger) *Verifier {
	timeout := cfg.Timeout.OrDefault(10 * time.Second)
	return &Verifier{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		verifyURL: cfg.VerifyURL,
		secret:    cfg.SecretKey,
		timeout:   timeout,
		logger:    logger,
	}
}

// Verify checks token for the client at remoteIP. It returns nil, or an
// error wrapping ErrRejected or ErrUnavailable.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v.secret == "" {
		return fmt.Errorf("%w: secret key is not configured", ErrUnavailable)
	}

	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(v.verifyURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("secret", v.secret)
	args.Set("response", token)
	if remoteIP != "" {
		args.Set("remoteip", remoteIP)
	}
	req.SetBody(args.QueryString())

	if err := v.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("%w: verifier returned status %d", ErrUnavailable, resp.StatusCode())
	}

	var result verifyResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("%w: decode verifier response: %v", ErrUnavailable, err)
	}

	if !result.Success {
		v.logger.Info("reCAPTCHA token rejected",
			zap.Strings("error_codes", result.ErrorCodes),
			zap.String("hostname", result.Hostname))
		return ErrRejected
	}

	return nil
}
