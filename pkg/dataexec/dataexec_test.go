package dataexec_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/revintel/insight-agent/pkg/dataexec"
	"github.com/revintel/insight-agent/pkg/domain"
)

func TestGatewayClientRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("Expected path /query, got %s", r.URL.Path)
		}

		var req domain.DataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Source != domain.SourceCRM {
			t.Errorf("source = %s, want crm", req.Source)
		}

		result := domain.DataResult{
			Rows:    []map[string]interface{}{{"win_rate": 0.34}},
			Summary: "1 row",
		}
		json.NewEncoder(w).Encode(result)
	}))
	defer server.Close()

	client := dataexec.NewGatewayClient(domain.SourceCRM, server.URL, 5*time.Second)

	result, err := client.Run(context.Background(), domain.DataRequest{
		Source:  domain.SourceCRM,
		Request: "win rate by quarter",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(result.Rows))
	}
}

func TestGatewayClientStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrQueryInvalid},
		{http.StatusUnprocessableEntity, domain.ErrQueryInvalid},
		{http.StatusGatewayTimeout, domain.ErrTimeout},
		{http.StatusInternalServerError, domain.ErrConnectionFailed},
	}

	for _, tc := range cases {
		status := tc.status
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := dataexec.NewGatewayClient(domain.SourceWarehouse, server.URL, 5*time.Second)
		_, err := client.Run(context.Background(), domain.DataRequest{
			Source:  domain.SourceWarehouse,
			Request: "revenue",
		})
		server.Close()

		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: got %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestGatewayClientConnectionRefused(t *testing.T) {
	client := dataexec.NewGatewayClient(domain.SourceCRM, "http://127.0.0.1:1", time.Second)
	_, err := client.Run(context.Background(), domain.DataRequest{Source: domain.SourceCRM, Request: "deals"})
	if !errors.Is(err, domain.ErrConnectionFailed) {
		t.Errorf("got %v, want ErrConnectionFailed", err)
	}
}

func TestMemoryExecutorMatchesTopic(t *testing.T) {
	exec := dataexec.NewMemoryExecutor(domain.SourceCRM, nil)

	result, err := exec.Run(context.Background(), domain.DataRequest{
		Source:  domain.SourceCRM,
		Request: "show win rate by quarter",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) == 0 {
		t.Error("expected seeded rows for win rate")
	}
}

func TestMemoryExecutorUnknownTopicReturnsEmpty(t *testing.T) {
	exec := dataexec.NewMemoryExecutor(domain.SourceWarehouse, nil)

	result, err := exec.Run(context.Background(), domain.DataRequest{
		Source:  domain.SourceWarehouse,
		Request: "lunar phase correlation",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("expected empty result, got %d rows", len(result.Rows))
	}
}

func TestMemoryExecutorRejectsWrongSource(t *testing.T) {
	exec := dataexec.NewMemoryExecutor(domain.SourceCRM, nil)

	_, err := exec.Run(context.Background(), domain.DataRequest{
		Source:  domain.SourceWarehouse,
		Request: "revenue",
	})
	if !errors.Is(err, domain.ErrQueryInvalid) {
		t.Errorf("got %v, want ErrQueryInvalid", err)
	}
}

func TestRegistryRoutesBySource(t *testing.T) {
	registry := dataexec.NewRegistry()
	if err := registry.Register(dataexec.NewMemoryExecutor(domain.SourceCRM, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(dataexec.NewMemoryExecutor(domain.SourceWarehouse, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := registry.Run(context.Background(), domain.DataRequest{
		Source:  domain.SourceWarehouse,
		Request: "monthly revenue",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) == 0 {
		t.Error("expected warehouse revenue rows")
	}
}

func TestRegistryUnknownSource(t *testing.T) {
	registry := dataexec.NewRegistry()
	_, err := registry.Run(context.Background(), domain.DataRequest{
		Source:  domain.SourceTransforms,
		Request: "health",
	})
	if !errors.Is(err, domain.ErrQueryInvalid) {
		t.Errorf("got %v, want ErrQueryInvalid", err)
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	registry := dataexec.NewRegistry()
	if err := registry.Register(dataexec.NewMemoryExecutor(domain.SourceCRM, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(dataexec.NewMemoryExecutor(domain.SourceCRM, nil)); err == nil {
		t.Error("expected error for duplicate registration")
	}
}
