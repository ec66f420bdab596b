package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/podium/internal/domain/types"
)

// ErrLimited is returned by Upload when the server refuses over quota.
var ErrLimited = errors.New("submission limit")

// Client talks to the podium HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	_, err = c.do(req, http.StatusOK, nil)
	return err
}

// Upload posts one attempt as a multipart file.
func (c *Client) Upload(ctx context.Context, a Attempt) (types.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("participant_id", a.ParticipantID); err != nil {
		return types.UploadResult{}, err
	}
	fw, err := mw.CreateFormFile("file", a.Filename)
	if err != nil {
		return types.UploadResult{}, err
	}
	if _, err := fw.Write(a.Content); err != nil {
		return types.UploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return types.UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/upload/%d", c.baseURL, a.TaskID), &body)
	if err != nil {
		return types.UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res types.UploadResult
	raw, err := c.do(req, http.StatusCreated, &res)
	if err != nil && strings.Contains(string(raw), "submission limit") {
		return res, ErrLimited
	}
	return res, err
}

// Evaluate runs the evaluate phase for one submission.
func (c *Client) Evaluate(ctx context.Context, submissionID string, taskID int) (types.EvaluationResult, error) {
	u := fmt.Sprintf("%s/evaluate/%s?task_id=%d", c.baseURL, url.PathEscape(submissionID), taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, http.NoBody)
	if err != nil {
		return types.EvaluationResult{}, err
	}
	var res types.EvaluationResult
	_, err = c.do(req, http.StatusOK, &res)
	return res, err
}

// Rankings fetches /rankings for task ("all" or an id).
func (c *Client) Rankings(ctx context.Context, task string) (types.Rankings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rankings?task="+url.QueryEscape(task), http.NoBody)
	if err != nil {
		return types.Rankings{}, err
	}
	var res types.Rankings
	_, err = c.do(req, http.StatusOK, &res)
	return res, err
}

// Leaderboard fetches /leaderboard.
func (c *Client) Leaderboard(ctx context.Context) (types.Leaderboard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/leaderboard", http.NoBody)
	if err != nil {
		return types.Leaderboard{}, err
	}
	var res types.Leaderboard
	_, err = c.do(req, http.StatusOK, &res)
	return res, err
}

// do sends req and decodes the body into v when the status matches want.
// The raw body is returned either way.
func (c *Client) do(req *http.Request, want int, v any) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return raw, fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if v != nil {
		if err := json.Unmarshal(raw, v); err != nil {
			return raw, fmt.Errorf("decode %s response: %w", req.URL.Path, err)
		}
	}
	return raw, nil
}
