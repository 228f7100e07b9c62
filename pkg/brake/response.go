// response.go wraps a completed HTTP round trip into a DeliveryResult.

package brake

import (
	"log/slog"
	"net/http"
	"net/url"
)

// DeliveryResult is the outcome of one HTTP round trip with the tracking
// service. Errors is set for an <errors> response, Notice for a <notice>
// response. Neither is set when the body could not be parsed or had an
// unexpected root element; Content always preserves the raw body.
type DeliveryResult struct {
	Content       string
	ContentLength int64
	ContentType   string
	Header        http.Header

	// IsFromCache is true when the response carried an Age header, the
	// usual sign that a cache on the path served it.
	IsFromCache bool

	ResponseURI *url.URL
	StatusCode  int
	Errors      []ResponseError
	Notice      *ResponseNotice
}

// Accepted reports whether the service assigned an identifier to the notice.
func (r *DeliveryResult) Accepted() bool {
	return r != nil && r.Notice != nil
}

// RequestEnd is the completion notification for one send.
type RequestEnd struct {
	// ID correlates the notification with the send that produced it.
	ID string

	// Request is the HTTP request that was sent.
	Request *http.Request

	// Notice is the notice that was serialized into Request.
	Notice *Notice

	// Result is the parsed response.
	Result *DeliveryResult
}

// RequestEndHandler receives completion notifications. It may be called from
// any goroutine and concurrently with other handlers.
type RequestEndHandler func(RequestEnd)

// NewDeliveryResult builds a result from resp and its already-read body.
// A parse failure is logged and leaves Errors and Notice empty.
func NewDeliveryResult(resp *http.Response, content string, logger *slog.Logger) *DeliveryResult {
	if logger == nil {
		logger = discardLogger()
	}

	result := &DeliveryResult{
		Content:       content,
		ContentLength: responseContentLength(resp, content),
		ContentType:   responseHeader(resp, "Content-Type"),
		Header:        responseHeaders(resp),
		IsFromCache:   responseHeader(resp, "Age") != "",
		ResponseURI:   responseURI(resp),
		StatusCode:    responseStatus(resp),
	}

	fields, err := ParseResponse(content)
	if err != nil {
		logger.Error("failed to parse response",
			"error", err,
			"status", result.StatusCode,
			"content_type", result.ContentType,
		)
		return result
	}
	result.Errors = fields.Errors
	result.Notice = fields.Notice
	return result
}

func responseContentLength(resp *http.Response, content string) int64 {
	if resp != nil && resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	return int64(len(content))
}

func responseHeader(resp *http.Response, key string) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get(key)
}

func responseHeaders(resp *http.Response) http.Header {
	if resp == nil {
		return http.Header{}
	}
	h := resp.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	return h
}

func responseURI(resp *http.Response) *url.URL {
	if resp == nil || resp.Request == nil || resp.Request.URL == nil {
		return nil
	}
	u := *resp.Request.URL
	return &u
}

func responseStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
