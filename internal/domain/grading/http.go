package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const maxGraderResponseBytes = 1 << 20

// HTTPOption applies a configuration option to the HTTP grader.
type HTTPOption func(*HTTP)

// WithHTTPClient sets the client used for grader calls.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout bounds every grader call.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// HTTP grades by posting the file to an external grading service as
// multipart/form-data (fields submission_id, task_id and file) and decoding
// a JSON {score, status, details} reply.
type HTTP struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTP creates a client for the grader at url.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{url: url, client: http.DefaultClient, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Grade sends req to the grading service.
func (h *HTTP) Grade(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	body, contentType, err := encodeRequest(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode: %w", ErrGrader, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGrader, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrGrader, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGraderResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %w", ErrGrader, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrGrader, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var wire struct {
		Score   float64         `json:"score"`
		Status  string          `json:"status"`
		Details json.RawMessage `json:"details"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}
	if wire.Status == "" {
		return Result{}, fmt.Errorf("%w: missing status", ErrInvalidResult)
	}

	res := Result{Score: wire.Score, Status: wire.Status, Details: detailsText(wire.Details, wire.Error)}
	if res.Succeeded() {
		res.Score = normalize(res.Score)
	}
	return res, nil
}

func encodeRequest(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("submission_id", req.SubmissionID); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("task_id", strconv.Itoa(req.TaskID)); err != nil {
		return nil, "", err
	}
	fw, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(req.Content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// detailsText flattens the details field, which graders send either as a
// string or as an object, and falls back to the error message.
func detailsText(details json.RawMessage, errMsg string) string {
	if len(details) > 0 && string(details) != "null" {
		var s string
		if err := json.Unmarshal(details, &s); err == nil {
			return s
		}
		return string(details)
	}
	return errMsg
}
