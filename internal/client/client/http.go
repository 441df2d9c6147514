package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/journal"
)

// maxReplyBytes bounds how much of a reply is read.
const maxReplyBytes = 64 << 20

type HTTPClient struct {
	endpoint *url.URL
	http     *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint url: unsupported scheme %q", u.Scheme)
	}
	return &HTTPClient{endpoint: u, http: &http.Client{Timeout: timeout}}, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type reply struct {
	OK                    bool            `json:"ok"`
	Error                 string          `json:"error"`
	Time                  string          `json:"time"`
	Status                string          `json:"status"`
	State                 json.RawMessage `json:"state"`
	ClientUpdatedAt       int64           `json:"clientUpdatedAt"`
	ServerClientUpdatedAt int64           `json:"serverClientUpdatedAt"`
	ServerUpdatedAt       string          `json:"serverUpdatedAt"`
}

func (c *HTTPClient) actionURL(action string, query url.Values) string {
	u := *c.endpoint
	q := u.Query()
	q.Set("action", action)
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *HTTPClient) do(ctx context.Context, method, target string, body any) (*reply, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read reply: %w", ErrUnavailable, err)
	}

	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		if resp.StatusCode >= 300 {
			return nil, newAPIError(resp.StatusCode, "")
		}
		return nil, fmt.Errorf("%w: malformed reply: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= 300 || !r.OK {
		return nil, newAPIError(resp.StatusCode, r.Error)
	}
	return &r, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.actionURL("ping", nil), nil)
	return err
}

func (c *HTTPClient) Backup(ctx context.Context, ownerKey string, doc *journal.Document, clientUpdatedAt int64) (*BackupResult, error) {
	body := struct {
		OwnerKey        string            `json:"ownerKey"`
		State           *journal.Document `json:"state"`
		ClientUpdatedAt int64             `json:"clientUpdatedAt"`
	}{ownerKey, doc, clientUpdatedAt}

	r, err := c.do(ctx, http.MethodPost, c.actionURL("backup", nil), body)
	if err != nil {
		return nil, err
	}
	return &BackupResult{
		Status:                r.Status,
		ClientUpdatedAt:       r.ClientUpdatedAt,
		ServerClientUpdatedAt: r.ServerClientUpdatedAt,
	}, nil
}

func (c *HTTPClient) Restore(ctx context.Context, ownerKey string) (*RestoreResult, error) {
	r, err := c.do(ctx, http.MethodGet, c.actionURL("restore", url.Values{"ownerKey": {ownerKey}}), nil)
	if err != nil {
		return nil, err
	}

	res := &RestoreResult{ClientUpdatedAt: r.ClientUpdatedAt}
	if len(r.State) > 0 && !bytes.Equal(bytes.TrimSpace(r.State), []byte("null")) {
		res.State = r.State
	}
	if r.ServerUpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, r.ServerUpdatedAt); err == nil {
			res.ServerUpdatedAt = ts
		}
	}
	return res, nil
}
