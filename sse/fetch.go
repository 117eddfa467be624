package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/spetersoncode/answer"
)

const (
	defaultChunkSize = 32 * 1024
	maxErrorBody     = 1 << 20
)

// Request describes the HTTP request issued by Fetch.
type Request struct {
	Method string // defaults to GET
	URL    string
	Header http.Header
	Body   []byte
}

// Fetcher issues HTTP requests and streams event-stream response bodies.
type Fetcher struct {
	client    *http.Client
	logger    *slog.Logger
	chunkSize int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithChunkSize sets the size of the buffer used to read the response body.
func WithChunkSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

// NewFetcher creates a Fetcher. Without options it uses http.DefaultClient.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    http.DefaultClient,
		logger:    slog.Default(),
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch sends req and calls onMessage with the data of every event record in
// the response body, synchronously and in arrival order. It returns nil once
// the body is fully drained.
//
// A non-success status yields an *answer.TransportError. Cancelling ctx
// aborts the request and yields an *answer.AbortError; onMessage is not
// called after cancellation.
func (f *Fetcher) Fetch(ctx context.Context, req Request, onMessage func(data string)) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return fmt.Errorf("sse: create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return answer.NewAbortError(ctx.Err())
		}
		return fmt.Errorf("sse: send request: %w", err)
	}
	defer resp.Body.Close()

	if err := CheckResponse(resp); err != nil {
		return err
	}

	log := f.logger.With("url", req.URL)
	log.Debug("stream opened", "status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"))

	parser := NewParser(func(rec Record) {
		if rec.Kind != KindEvent || ctx.Err() != nil {
			return
		}
		onMessage(rec.Data)
	})

	r := f.decodeBody(resp, log)
	buf := make([]byte, f.chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && ctx.Err() == nil {
			parser.Feed(buf[:n])
		}
		if ctx.Err() != nil {
			return answer.NewAbortError(ctx.Err())
		}
		if err == io.EOF {
			log.Debug("stream closed")
			return nil
		}
		if err != nil {
			return fmt.Errorf("sse: read body: %w", err)
		}
	}
}

// decodeBody wraps the response body with a decoder for the declared charset.
func (f *Fetcher) decodeBody(resp *http.Response, log *slog.Logger) io.Reader {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return resp.Body
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return resp.Body
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return resp.Body
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		log.Warn("unknown charset, reading as utf-8", "charset", charset)
		return resp.Body
	}
	return enc.NewDecoder().Reader(resp.Body)
}

// CheckResponse returns nil for a 2xx response. Otherwise it reads the body
// and returns an *answer.TransportError. The message is the compact JSON body
// when it decodes to a non-empty value, else the status line.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := resp.Status
	if msg == "" {
		msg = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if s := compactJSON(body); s != "" {
		msg = s
	}

	return &answer.TransportError{
		Code:    resp.StatusCode,
		Status:  resp.Status,
		Body:    body,
		Message: msg,
	}
}

// compactJSON returns body in compact form if it is JSON holding a non-empty
// object, array or string, and "" otherwise.
func compactJSON(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
	case []any:
		if len(t) == 0 {
			return ""
		}
	case string:
		if t == "" {
			return ""
		}
	default:
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return ""
	}
	return buf.String()
}
