// Package dataexec provides executors for the external data systems a
// query plan can touch: the CRM, the analytics warehouse, and the
// transform layer.
package dataexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/revintel/insight-agent/pkg/domain"
)

// GatewayClient implements domain.DataExecutor against an HTTP data
// gateway fronting one source.
type GatewayClient struct {
	source     domain.DataSource
	baseURL    string
	httpClient *http.Client
}

// NewGatewayClient creates an executor for one gateway endpoint
func NewGatewayClient(source domain.DataSource, baseURL string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		source:  source,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Source returns the data source this executor serves
func (c *GatewayClient) Source() domain.DataSource {
	return c.source
}

// Run executes a data request against the gateway.
func (c *GatewayClient) Run(ctx context.Context, req domain.DataRequest) (*domain.DataResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		fmt.Sprintf("%s/query", c.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrQueryInvalid, resp.StatusCode, string(respBody))
		case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
			return nil, fmt.Errorf("%w: status %d", domain.ErrTimeout, resp.StatusCode)
		default:
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrConnectionFailed, resp.StatusCode, string(respBody))
		}
	}

	var result domain.DataResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
