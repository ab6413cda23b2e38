// Package supabase 通过 PostgREST 接口访问托管的议事录表与 match_minutes RPC
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"meeting-minutes-api/internal/config"
)

const (
	restPrefix    = "/rest/v1/"
	maxErrorBody  = 4096
	preferHeader  = "Prefer"
	returnRecords = "return=representation"
)

// Client PostgREST 客户端
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(cfg *config.SupabaseConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, fmt.Errorf("supabase service key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    base,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// response 原始响应
type response struct {
	Status int
	Body   []byte
}

// OK PostgREST 以 200/201/204 表示成功
func (r *response) OK() bool {
	switch r.Status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return true
	}
	return false
}

// ErrorBody 截断后的响应体，用作错误详情
func (r *response) ErrorBody() string {
	if len(r.Body) > maxErrorBody {
		return string(r.Body[:maxErrorBody])
	}
	return string(r.Body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, prefer string) (*response, error) {
	endpoint := c.baseURL + restPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode supabase request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set(preferHeader, prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read supabase response: %w", err)
	}
	return &response{Status: resp.StatusCode, Body: b}, nil
}

// HealthCheck 访问 PostgREST 根路径
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "", nil, nil, "")
	if err != nil {
		return err
	}
	if resp.Status >= http.StatusInternalServerError {
		return fmt.Errorf("supabase health check status %d", resp.Status)
	}
	return nil
}
