package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// ErrorResponse is the body of every failed function call
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a write
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// JSON writes v as the response body with the given status
func JSON(ctx *fasthttp.RequestCtx, v interface{}, statusCode int) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"Internal server error"}`)
		return
	}
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// JSONError is a convenience wrapper for error responses
func JSONError(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	JSON(ctx, ErrorResponse{Error: message}, statusCode)
}

// JSONSuccess is a convenience wrapper for success responses
func JSONSuccess(ctx *fasthttp.RequestCtx, message string) {
	JSON(ctx, SuccessResponse{Success: true, Message: message}, fasthttp.StatusOK)
}

// SetCORS marks the response as callable from any origin with the listed
// methods.
func SetCORS(ctx *fasthttp.RequestCtx, methods string) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", methods)
}
