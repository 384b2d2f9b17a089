// Package base provides shared HTTP plumbing for MediaWiki API clients.
// Both the Incubator (source) and destination clients build on it. It does
// no automatic retrying: the source client propagates failures directly and
// the destination client owns its own bounded retry policy.
package base

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/olgasafonova/incubator-import-mcp-server/internal/errors"
	"github.com/olgasafonova/incubator-import-mcp-server/metrics"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the importer to wiki operators. Sent both
	// as User-Agent and as the Api-User-Agent tag MediaWiki asks API
	// clients to carry.
	DefaultUserAgent = "incubator-import-mcp-server/1.0 (https://github.com/olgasafonova/incubator-import-mcp-server)"
)

// Client is the shared HTTP client for MediaWiki API calls.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithUserAgent overrides the client identification tag
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		client.UserAgent = ua
	}
}

// NewClient creates a new base client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient: newHTTPClient(DefaultTimeout),
		Logger:     slog.Default(),
		UserAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostForm performs one form-encoded POST against a MediaWiki api.php
// endpoint and returns the raw response body. format=json is always set.
// authorization, when non-empty, is sent as the Authorization header.
func (c *Client) PostForm(ctx context.Context, apiURL string, params url.Values, authorization string) ([]byte, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setIdentity(req, authorization)

	return c.do(req, params.Get("action"))
}

// PostRaw performs one form-encoded POST against an arbitrary wiki endpoint
// (e.g. index.php for Special:Export) and returns the raw body without any
// JSON handling.
func (c *Client) PostRaw(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setIdentity(req, "")

	return c.do(req, params.Get("title"))
}

// PostMultipart performs a multipart POST with one file attachment, used for
// the XML import upload. fields are sent as ordinary form parts; the file
// content is attached under fileField with the given fileName.
func (c *Client) PostMultipart(ctx context.Context, apiURL string, fields map[string]string, fileField, fileName string, file []byte, authorization string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := mw.WriteField("format", "json"); err != nil {
		return nil, fmt.Errorf("failed to write field format: %w", err)
	}
	if err := mw.WriteField("formatversion", "2"); err != nil {
		return nil, fmt.Errorf("failed to write field formatversion: %w", err)
	}

	fw, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := fw.Write(file); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setIdentity(req, authorization)

	return c.do(req, fields["action"])
}

func (c *Client) setIdentity(req *http.Request, authorization string) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Api-User-Agent", c.UserAgent)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
}

func (c *Client) do(req *http.Request, action string) ([]byte, error) {
	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(req.URL.Host, action, time.Since(start).Seconds(), false)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		metrics.RecordAPICall(req.URL.Host, action, time.Since(start).Seconds(), false)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Warn("API returned non-OK status",
			"status", resp.StatusCode,
			"action", action,
			"url", req.URL.String())
		metrics.RecordAPICall(req.URL.Host, action, time.Since(start).Seconds(), false)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	metrics.RecordAPICall(req.URL.Host, action, time.Since(start).Seconds(), true)
	return body, nil
}

// errorEnvelope mirrors the MediaWiki JSON error shape.
type errorEnvelope struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// CheckError inspects a JSON response body for the MediaWiki error envelope.
// It returns an *errors.APIError for a well-formed error response, an
// *errors.UndecodableResponseError when the body is not valid JSON at all,
// and nil for a normal response.
func CheckError(body []byte, action string) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &apperrors.UndecodableResponseError{
			Action: action,
			Body:   truncate(string(body), 200),
		}
	}
	if env.Error != nil {
		return apperrors.NewAPIError(env.Error.Code, env.Error.Info)
	}
	return nil
}

// Decode unmarshals a response body into a typed result, mapping a failure
// to the fixed undecodable-response error.
func Decode(body []byte, action string, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &apperrors.UndecodableResponseError{
			Action: action,
			Body:   truncate(string(body), 200),
		}
	}
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with optimized transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DisableCompression:    false,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
