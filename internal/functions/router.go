package functions

import (
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/localcontactforms/contactform/internal/common/apperr"
	"github.com/localcontactforms/contactform/internal/common/httputil"
)

// anyMethod registers a handler that accepts every method and checks it itself
const anyMethod = "*"

// Router dispatches on path, then method. Paths ending in "/" also match
// every path below them.
type Router struct {
	routes map[string]map[string]fasthttp.RequestHandler // path -> method -> handler
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		routes: make(map[string]map[string]fasthttp.RequestHandler),
		logger: logger,
	}
}

// Handle registers handler for method and path.
func (r *Router) Handle(method, path string, handler fasthttp.RequestHandler) {
	if r.routes[path] == nil {
		r.routes[path] = make(map[string]fasthttp.RequestHandler)
	}

	if _, exists := r.routes[path][method]; exists {
		r.logger.Warn("Overwriting existing handler registration",
			zap.String("method", method),
			zap.String("path", path))
	}

	r.routes[path][method] = handler
	r.logger.Debug("Registered handler",
		zap.String("method", method),
		zap.String("path", path))
}

// Function registers a CORS-enabled function endpoint. OPTIONS answers the
// preflight with an empty 200; methods other than method get a 405.
func (r *Router) Function(method, path string, handler fasthttp.RequestHandler) {
	allowed := method + ", " + fasthttp.MethodOptions
	r.Handle(anyMethod, path, func(ctx *fasthttp.RequestCtx) {
		httputil.SetCORS(ctx, allowed)

		switch string(ctx.Method()) {
		case fasthttp.MethodOptions:
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.ResetBody()
		case method:
			handler(ctx)
		default:
			err := apperr.MethodNotAllowed()
			httputil.JSONError(ctx, err.Message, err.StatusCode())
		}
	})
}

// Lookup returns the handler for a request and the registered path it
// matched, for use as a metrics label.
func (r *Router) Lookup(method, path string) (fasthttp.RequestHandler, string) {
	pattern, methods := r.match(path)
	if methods == nil {
		return notFound, "unmatched"
	}
	if h, ok := methods[method]; ok {
		return h, pattern
	}
	if h, ok := methods[anyMethod]; ok {
		return h, pattern
	}
	return methodNotAllowed, pattern
}

// Handler dispatches every request through Lookup.
func (r *Router) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		h, _ := r.Lookup(string(ctx.Method()), string(ctx.Path()))
		h(ctx)
	}
}

func (r *Router) match(path string) (string, map[string]fasthttp.RequestHandler) {
	if methods, ok := r.routes[path]; ok {
		return path, methods
	}

	// longest registered prefix wins
	best := ""
	for registered := range r.routes {
		if len(registered) > 1 && strings.HasSuffix(registered, "/") && strings.HasPrefix(path, registered) && len(registered) > len(best) {
			best = registered
		}
	}
	if best == "" {
		return "", nil
	}
	return best, r.routes[best]
}

func notFound(ctx *fasthttp.RequestCtx) {
	httputil.JSONError(ctx, "Not found", fasthttp.StatusNotFound)
}

func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	err := apperr.MethodNotAllowed()
	httputil.JSONError(ctx, err.Message, err.StatusCode())
}
