package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// envelope mirrors the JSON envelope returned by every ragchat API route
// except chat.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// chatResponse mirrors the body of POST /api/chat.
type chatResponse struct {
	Success bool     `json:"success"`
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Error   string   `json:"error"`
}

type app struct {
	ID            string     `json:"app_id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	LastIndexedAt *time.Time `json:"last_indexed_at"`
	FileCount     int        `json:"file_count"`
}

type file struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type uploadResult struct {
	Uploaded []file   `json:"uploaded"`
	Errors   []string `json:"errors"`
	Message  string   `json:"message"`
}

type trainResult struct {
	Message   string `json:"message"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Status    string `json:"status"`
}

type message struct {
	Message string `json:"message"`
}

// apiError is a non-success response from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// client talks to one ragchat server.
type client struct {
	base string
	http *http.Client
}

func (c *client) configure(base string, timeout time.Duration) {
	c.base = strings.TrimRight(base, "/")
	c.http = &http.Client{Timeout: timeout}
}

func (c *client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", c.base+path, err)
	}
	return resp, nil
}

// call performs a request against an enveloped route and decodes its data
// into out when out is non-nil.
func (c *client) call(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("server returned status %d with an undecodable body: %w", resp.StatusCode, err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

func appPath(id string, rest ...string) string {
	p := "/api/apps/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (c *client) health(ctx context.Context) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	var h struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return h.Status, nil
}

func (c *client) createApp(ctx context.Context, id, name string) (*app, error) {
	body, err := jsonBody(map[string]string{"appId": id, "name": name})
	if err != nil {
		return nil, err
	}
	var a app
	if err := c.call(ctx, http.MethodPost, "/api/apps", body, "application/json", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *client) listApps(ctx context.Context) ([]app, error) {
	var apps []app
	err := c.call(ctx, http.MethodGet, "/api/apps", nil, "", &apps)
	return apps, err
}

func (c *client) getApp(ctx context.Context, id string) (*app, error) {
	var a app
	if err := c.call(ctx, http.MethodGet, appPath(id), nil, "", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *client) deleteApp(ctx context.Context, id string) (string, error) {
	var m message
	err := c.call(ctx, http.MethodDelete, appPath(id), nil, "", &m)
	return m.Message, err
}

// upload sends local files as one multipart request.
func (c *client) upload(ctx context.Context, id string, paths []string) (*uploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", p, err)
		}
		part, err := w.CreateFormFile("files", filepath.Base(p))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var res uploadResult
	if err := c.call(ctx, http.MethodPost, appPath(id, "files"), &buf, w.FormDataContentType(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *client) listFiles(ctx context.Context, id string) ([]file, error) {
	var files []file
	err := c.call(ctx, http.MethodGet, appPath(id, "files"), nil, "", &files)
	return files, err
}

func (c *client) deleteFile(ctx context.Context, id, name string) (string, error) {
	var m message
	err := c.call(ctx, http.MethodDelete, appPath(id, "files", url.PathEscape(name)), nil, "", &m)
	return m.Message, err
}

func (c *client) train(ctx context.Context, id string) (*trainResult, error) {
	var res trainResult
	if err := c.call(ctx, http.MethodPost, appPath(id, "train"), nil, "", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *client) chat(ctx context.Context, id, msg string) (*chatResponse, error) {
	body, err := jsonBody(map[string]string{"appId": id, "message": msg})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/api/chat", body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("server returned status %d with an undecodable body: %w", resp.StatusCode, err)
	}
	if !cr.Success {
		return nil, &apiError{Status: resp.StatusCode, Message: cr.Error}
	}
	return &cr, nil
}
