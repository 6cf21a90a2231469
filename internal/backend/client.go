package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// DefaultTimeout bounds a single backend request when the context has no deadline.
const DefaultTimeout = 60 * time.Second

// ErrNotFound is matched by APIError values with status 404.
var ErrNotFound = errors.New("resource not found")

// APIError is a non-2xx answer from a backend service.
type APIError struct {
	Service string
	Method  string
	Path    string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s %s: status %d: %s", e.Service, e.Method, e.Path, e.Status, e.Body)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == fasthttp.StatusNotFound
}

// Client is a JSON-over-HTTP client for one backend service.
// Requests are made exactly once; there is no retry.
type Client struct {
	service string
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	debug   bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDebug logs every request.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// NewClient creates a client for the service at baseURL.
func NewClient(service, baseURL string, opts ...Option) *Client {
	c := &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		http: &fasthttp.Client{
			Name:                "kontur-content-bot",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL joins path to the base URL.
func (c *Client) URL(path string) string { return c.baseURL + path }

// getJSON issues a GET and decodes the answer into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, fasthttp.MethodGet, path, nil, out)
}

// doJSON sends in (if non-nil) as JSON and decodes the answer into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	contentType := ""
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

// doMultipart sends form as multipart/form-data.
func (c *Client) doMultipart(ctx context.Context, method, path string, form *Form, out any) error {
	contentType, body, err := form.encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s %s form: %w", method, path, err)
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	requestID := uuid.NewString()
	req.SetRequestURI(c.URL(path))
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.SetContentType(contentType)
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if c.debug {
		log.Printf("[Backend %s] %s %s (request %s)", c.service, method, path, requestID)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("failed to call %s %s %s: %w", c.service, method, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return &APIError{Service: c.service, Method: method, Path: path, Status: status, Body: string(resp.Body())}
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s %s %s response: %w", c.service, method, path, err)
	}
	return nil
}

// Form is a multipart form under construction.
type Form struct {
	fields []formField
	files  []formFile
	err    error
}

type formField struct{ name, value string }

type formFile struct {
	field, name string
	data        []byte
}

// Field adds a text field.
func (f *Form) Field(name, value string) *Form {
	f.fields = append(f.fields, formField{name, value})
	return f
}

// Int adds an integer field.
func (f *Form) Int(name string, v int64) *Form {
	return f.Field(name, strconv.FormatInt(v, 10))
}

// Bool adds a boolean field.
func (f *Form) Bool(name string, v bool) *Form {
	return f.Field(name, strconv.FormatBool(v))
}

// JSON adds a field holding v encoded as JSON. An encoding error is
// reported when the form is sent.
func (f *Form) JSON(name string, v any) *Form {
	data, err := json.Marshal(v)
	if err != nil {
		if f.err == nil {
			f.err = fmt.Errorf("field %s: %w", name, err)
		}
		return f
	}
	return f.Field(name, string(data))
}

// File adds a file part.
func (f *Form) File(field, filename string, data []byte) *Form {
	f.files = append(f.files, formFile{field, filename, data})
	return f
}

func (f *Form) encode() (string, []byte, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fl := range f.fields {
		if err := w.WriteField(fl.name, fl.value); err != nil {
			return "", nil, err
		}
	}
	for _, ff := range f.files {
		part, err := w.CreateFormFile(ff.field, ff.name)
		if err != nil {
			return "", nil, err
		}
		if _, err := part.Write(ff.data); err != nil {
			return "", nil, err
		}
	}
	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}
