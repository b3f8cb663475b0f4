package streamer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"kvmd-streamer-go/internal/domain/image"
	"kvmd-streamer-go/internal/domain/streamer/model"
	"kvmd-streamer-go/internal/platform/config"
)

const unixBaseURL = "http://localhost"

// Client talks to the uStreamer HTTP API over a unix socket or TCP.
type Client struct {
	http     *http.Client
	baseURL  string
	pipeline *image.Pipeline
	now      func() time.Time
}

// NewClient builds a client from the streamer config section. UnixSocket
// wins over URL.
func NewClient(cfg config.StreamerConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	baseURL := strings.TrimRight(cfg.URL, "/")
	if cfg.UnixSocket != "" {
		socket := cfg.UnixSocket
		dialer := &net.Dialer{Timeout: timeout}
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socket)
		}
		baseURL = unixBaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("streamer.unix_socket or streamer.url is required")
	}

	return &Client{
		http:     &http.Client{Timeout: timeout, Transport: transport},
		baseURL:  baseURL,
		pipeline: image.NewPipeline(image.Limits{}),
		now:      time.Now,
	}, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return resp, nil
}

// State returns the "result" object of uStreamer's /state.
func (c *Client) State(ctx context.Context) (map[string]any, error) {
	resp, err := c.get(ctx, "/state")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var payload struct {
		OK     bool           `json:"ok"`
		Result map[string]any `json:"result"`
	}
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if !payload.OK {
		return nil, fmt.Errorf("streamer state not ok")
	}
	return payload.Result, nil
}

// Capture fetches one frame from /snapshot.
func (c *Client) Capture(ctx context.Context) (*model.Snapshot, error) {
	resp, err := c.get(ctx, "/snapshot")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := c.pipeline.Process(ctx, image.Input{Reader: resp.Body, Source: "ustreamer"})
	if err != nil {
		return nil, err
	}

	headers := model.FilterHeaders(resp.Header)
	width := model.HeaderInt(headers, model.HeaderWidth)
	height := model.HeaderInt(headers, model.HeaderHeight)
	if width <= 0 || height <= 0 {
		width, height = out.Info.Width, out.Info.Height
	}

	return &model.Snapshot{
		Data:       out.Bytes,
		Headers:    headers,
		Online:     headers[model.HeaderOnline] == "true",
		Width:      width,
		Height:     height,
		CapturedAt: c.now(),
	}, nil
}
