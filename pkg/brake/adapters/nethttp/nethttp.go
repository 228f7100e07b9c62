// Package nethttp reports net/http request context and handler panics as notices.
package nethttp

import (
	"context"
	"net/http"
	"sort"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

// RequestURL returns the absolute URL of r as seen by the server.
func RequestURL(r *http.Request) string {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	return u.String()
}

// Params returns the query parameters of r plus its form values when the
// handler already parsed them. The body is never read.
func Params(r *http.Request) []brake.Var {
	vars := brake.VarsFromValues(r.URL.Query())
	if r.PostForm != nil {
		vars = append(vars, brake.VarsFromValues(r.PostForm)...)
	}
	return brake.BuildVars(vars)
}

// CgiData returns server variables, headers, and cookies of r.
func CgiData(r *http.Request) []brake.Var {
	vars := []brake.Var{
		{Key: "REQUEST_METHOD", Value: r.Method},
		{Key: "REQUEST_URI", Value: r.RequestURI},
		{Key: "REMOTE_ADDR", Value: r.RemoteAddr},
		{Key: "SERVER_PROTOCOL", Value: r.Proto},
		{Key: "HTTP_HOST", Value: r.Host},
	}

	headers := r.Header.Clone()
	headers.Del("Cookie")
	vars = append(vars, brake.VarsFromHeader(headers)...)

	cookies := r.Cookies()
	sort.SliceStable(cookies, func(i, j int) bool { return cookies[i].Name < cookies[j].Name })
	for _, c := range cookies {
		vars = append(vars, brake.Var{Key: "Cookie." + c.Name, Value: c.Value})
	}
	return brake.BuildVars(vars)
}

// Hooks returns builder hooks reporting r. Use them with a builder scoped to
// a single request; WithRequest serves shared builders.
func Hooks(r *http.Request) brake.Hooks {
	return brake.Hooks{
		URL: func(context.Context, *brake.ExceptionInfo) string {
			return RequestURL(r)
		},
		Params: func(context.Context, *brake.ExceptionInfo) []brake.Var {
			return Params(r)
		},
		CgiData: func(context.Context, *brake.ExceptionInfo) []brake.Var {
			return CgiData(r)
		},
	}
}

// WithRequest attaches the URL, params, and cgi-data of r to ctx.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	ctx = brake.WithURL(ctx, RequestURL(r))
	ctx = brake.WithVars(ctx, brake.GroupParams, Params(r)...)
	ctx = brake.WithVars(ctx, brake.GroupCgiData, CgiData(r)...)
	return ctx
}

// Middleware recovers handler panics, sends them with the request context,
// and responds 500. Panics with http.ErrAbortHandler are re-raised unreported.
func Middleware(client *brake.Client, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			ctx := WithRequest(r.Context(), r)
			_ = client.SendError(ctx, brake.NewPanicError(rec))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
