// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package backend is a typed client for the clinic REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	xglog "github.com/ManuGH/physio/internal/log"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20

	// HeaderFrameSeq carries the sampler's sequence number on frame uploads.
	HeaderFrameSeq = "X-Frame-Seq"
	// HeaderRequestID correlates client and backend logs.
	HeaderRequestID = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Token   string
	// Transport is wrapped with otelhttp; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the clinic backend. It is safe for concurrent use.
type Client struct {
	base   string
	http   *http.Client
	token  string
	logger zerolog.Logger
}

// New creates a backend client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &Client{
		base:  strings.TrimRight(opts.BaseURL, "/"),
		token: opts.Token,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		logger: xglog.WithComponent("backend"),
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.base }

type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	header      http.Header
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	start := time.Now()
	logger := xglog.WithContext(ctx, c.logger)

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.base+req.path, req.body)
	if err != nil {
		return &APIError{Sentinel: ErrValidation, Operation: req.op, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := xglog.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	httpReq.Header.Set(HeaderRequestID, reqID)
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	requestDuration.WithLabelValues(req.op).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(req.op, outcome(status)).Inc()

	if err != nil {
		logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "backend.transport_error").
			Str(xglog.FieldOperation, req.op).
			Str(xglog.FieldRequestID, reqID).
			Msg("backend request failed")
		return &APIError{Sentinel: ErrUnavailable, Operation: req.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Sentinel:  classifyStatus(resp.StatusCode),
			Operation: req.op,
			Status:    resp.StatusCode,
			Message:   extractMessage(body),
		}
		logger.Debug().
			Str(xglog.FieldEvent, "backend.error_status").
			Str(xglog.FieldOperation, req.op).
			Str(xglog.FieldRequestID, reqID).
			Int(xglog.FieldStatus, resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("backend rejected request")
		return apiErr
	}

	logger.Debug().
		Str(xglog.FieldEvent, "backend.ok").
		Str(xglog.FieldOperation, req.op).
		Str(xglog.FieldRequestID, reqID).
		Int(xglog.FieldStatus, resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request done")

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return &APIError{Sentinel: ErrBadResponse, Operation: req.op, Status: resp.StatusCode, Err: err}
		}
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &APIError{Sentinel: ErrBadResponse, Operation: req.op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, request{op: op, method: http.MethodGet, path: path}, out)
}

// Ping reports whether the backend answers HTTP at all. Any response
// other than a gateway or transport failure counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	err := c.getJSON(ctx, "ping", "/openapi.json", nil)
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrUpstream) {
		return err
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		var err error
		if body, err = jsonBody(in); err != nil {
			return &APIError{Sentinel: ErrValidation, Operation: op, Err: err}
		}
		contentType = "application/json"
	}
	return c.do(ctx, request{op: op, method: method, path: path, body: body, contentType: contentType}, out)
}

// form builds a multipart body.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) optional(name, value string) {
	if value != "" {
		f.field(name, value)
	}
}

func (f *form) optionalInt(name string, v int) {
	if v != 0 {
		f.field(name, strconv.Itoa(v))
	}
}

func (f *form) file(name string, up *Upload) {
	if f.err != nil || up == nil {
		return
	}
	ct := up.ContentType
	if ct == "" {
		ct = http.DetectContentType(up.Data)
	}
	filename := up.Filename
	if filename == "" {
		filename = name
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, filename))
	h.Set("Content-Type", ct)
	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(up.Data)
}

func (f *form) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return &f.buf, f.w.FormDataContentType(), nil
}

func (c *Client) sendForm(ctx context.Context, op, method, path string, f *form, header http.Header, out any) error {
	body, ct, err := f.finish()
	if err != nil {
		return &APIError{Sentinel: ErrValidation, Operation: op, Err: err}
	}
	return c.do(ctx, request{op: op, method: method, path: path, body: body, contentType: ct, header: header}, out)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
