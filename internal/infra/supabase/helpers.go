package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for GET, POST, PATCH, DELETE
// ============================================================

// send executes one authenticated PostgREST request and returns the body of
// a 2xx response. Non-2xx responses come back as *statusError.
func (c *Client) send(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &statusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	return c.send(ctx, method, path, nil, "")
}

// doPost inserts rows (a struct or a slice of structs) into table.
func (c *Client) doPost(ctx context.Context, table string, rows any) ([]byte, error) {
	return c.send(ctx, http.MethodPost, table, rows, "return=representation")
}

// doPatch updates the rows matched by path and returns them.
func (c *Client) doPatch(ctx context.Context, path string, data any) ([]byte, error) {
	return c.send(ctx, http.MethodPatch, path, data, "return=representation")
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	_, err := c.send(ctx, http.MethodDelete, path, nil, "return=minimal")
	return err
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// getRows runs a GET and decodes the JSON array into dst.
func (c *Client) getRows(ctx context.Context, path string, dst any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("[]")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
