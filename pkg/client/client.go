package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	svcerror "food-order-loadtest/pkg/error"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// Response is returned for every call; transport failures carry Status 0 and Err.
type Response struct {
	Status   int
	Body     []byte
	Duration time.Duration
	Err      error
}

func (r Response) OK() bool {
	return r.Err == nil && r.Status == http.StatusOK
}

// Doer is the slice of the client the workflow driver depends on.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) Response
}

type Client struct {
	HTTP    *http.Client
	BaseURL string
	Headers map[string]string
	calls   atomic.Int64
}

func New(conf Config) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "food-order-loadtest/1.0",
	}
	for k, v := range conf.Headers {
		headers[k] = v
	}

	return &Client{
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        512,
				MaxIdleConnsPerHost: 512,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		BaseURL: strings.TrimRight(conf.BaseURL, "/"),
		Headers: headers,
	}
}

// Calls reports how many requests the client has attempted.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

func transportErr(op string, status int, cause error) error {
	opts := []func(*svcerror.ErrorDetails){
		svcerror.WithOp(op),
		svcerror.WithStatus(status),
		svcerror.WithTime(time.Now().UTC()),
	}
	if cause != nil {
		opts = append(opts, svcerror.WithCause(cause))
	}
	return svcerror.New(svcerror.ErrTransportError, opts...)
}

func (c *Client) Do(ctx context.Context, method, path string, body any) Response {
	c.calls.Add(1)
	op := fmt.Sprintf("Client.%s %s", method, path)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Response{Err: svcerror.New(
				svcerror.ErrInternalError,
				svcerror.WithOp(op),
				svcerror.WithMsg("marshal request body"),
				svcerror.WithCause(err),
			)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return Response{Err: transportErr(op, 0, err)}
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{Duration: time.Since(start), Err: transportErr(op, 0, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return Response{Status: resp.StatusCode, Duration: elapsed, Err: transportErr(op, resp.StatusCode, err)}
	}

	return Response{Status: resp.StatusCode, Body: raw, Duration: elapsed}
}
