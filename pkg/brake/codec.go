// codec.go serializes notices to canonical XML and decodes service responses.

package brake

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MarshalNotice renders n as indented XML with no declaration and no
// namespace attributes.
func MarshalNotice(n *Notice) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: notice is nil", ErrInvalidArgument)
	}
	out := *n
	if out.Version == "" {
		out.Version = NoticeVersion
	}
	data, err := xml.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal notice: %w", err)
	}
	return data, nil
}

// ResponseFields is the decoded content of a service response body.
// At most one of Errors and Notice is set.
type ResponseFields struct {
	Errors []ResponseError
	Notice *ResponseNotice
}

// ResponseError is one validation failure reported by the service.
type ResponseError struct {
	Message string `json:"message"`
}

// ResponseNotice holds the identifiers the service assigned to a notice.
type ResponseNotice struct {
	ID      int    `json:"id"`
	ErrorID int    `json:"error_id"`
	URL     string `json:"url,omitempty"`
}

type errorsDoc struct {
	Errors []string `xml:"error"`
}

type noticeDoc struct {
	ID      string `xml:"id"`
	ErrorID string `xml:"error-id"`
	URL     string `xml:"url"`
}

// ParseResponse decodes a response body by its root element. An <errors>
// root yields one ResponseError per <error> child, a <notice> root yields the
// assigned identifiers, and any other root yields an empty result. A body
// without a well-formed root element is an error.
func ParseResponse(body string) (ResponseFields, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return ResponseFields{}, errors.New("response has no root element")
		}
		if err != nil {
			return ResponseFields{}, fmt.Errorf("decode response: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		return decodeRoot(dec, start)
	}
}

func decodeRoot(dec *xml.Decoder, start xml.StartElement) (ResponseFields, error) {
	switch start.Name.Local {
	case "errors":
		var doc errorsDoc
		if err := dec.DecodeElement(&doc, &start); err != nil {
			return ResponseFields{}, fmt.Errorf("decode errors: %w", err)
		}
		fields := ResponseFields{Errors: make([]ResponseError, 0, len(doc.Errors))}
		for _, msg := range doc.Errors {
			fields.Errors = append(fields.Errors, ResponseError{Message: strings.TrimSpace(msg)})
		}
		return fields, nil

	case "notice":
		var doc noticeDoc
		if err := dec.DecodeElement(&doc, &start); err != nil {
			return ResponseFields{}, fmt.Errorf("decode notice: %w", err)
		}
		return ResponseFields{Notice: &ResponseNotice{
			ID:      atoiOrZero(doc.ID),
			ErrorID: atoiOrZero(doc.ErrorID),
			URL:     strings.TrimSpace(doc.URL),
		}}, nil

	default:
		if err := dec.Skip(); err != nil {
			return ResponseFields{}, fmt.Errorf("decode %s: %w", start.Name.Local, err)
		}
		return ResponseFields{}, nil
	}
}

// atoiOrZero returns 0 for missing or malformed numbers.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// encodeNoticeBody is MarshalNotice for the transport body.
func encodeNoticeBody(n *Notice) (*bytes.Reader, int64, error) {
	data, err := MarshalNotice(n)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
