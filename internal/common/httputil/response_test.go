package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestJSONError(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	JSONError(ctx, "Tenant not found", fasthttp.StatusNotFound)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	assert.JSONEq(t, `{"error":"Tenant not found"}`, string(ctx.Response.Body()))
}

func TestJSONSuccess(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	JSONSuccess(ctx, "Form submitted successfully")

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"success":true,"message":"Form submitted successfully"}`, string(ctx.Response.Body()))
}

func TestJSON_Unencodable(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	JSON(ctx, map[string]interface{}{"bad": make(chan int)}, fasthttp.StatusOK)

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(ctx.Response.Body()))
}

func TestSetCORS(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	SetCORS(ctx, "POST, OPTIONS")

	assert.Equal(t, "*", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
	assert.Equal(t, "Content-Type", string(ctx.Response.Header.Peek("Access-Control-Allow-Headers")))
	assert.Equal(t, "POST, OPTIONS", string(ctx.Response.Header.Peek("Access-Control-Allow-Methods")))
}
