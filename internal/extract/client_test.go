package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleResult = `[
	{"document_type": "text", "metadata": {"content": "Revenue increased 12%\n"}},
	{"document_type": "structured", "metadata": {"table_metadata": {"table_content": "| a | b |"}}}
]`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testClient(url string, timeout time.Duration) *Client {
	c := NewClient(url, "secret", timeout)
	c.pollEvery = time.Millisecond
	return c
}

func TestClient_SubmitThenPoll(t *testing.T) {
	var polls atomic.Int32
	var gotSpec jobSpec
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/submit_job", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotSpec); err != nil {
			t.Errorf("decode spec: %v", err)
		}
		w.Write([]byte(`{"job_id": "job-1"}`))
	})
	mux.HandleFunc("GET /v1/fetch_job/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-1" {
			t.Errorf("expected job-1, got %s", r.PathValue("id"))
		}
		if polls.Add(1) < 3 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write([]byte(sampleResult))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	raws, err := c.Extract(context.Background(), writeSource(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(raws))
	}
	if polls.Load() != 3 {
		t.Errorf("expected 3 polls, got %d", polls.Load())
	}
	if gotSpec.JobPayload.DocumentType[0] != "pdf" || gotSpec.JobPayload.SourceName[0] != "report.pdf" {
		t.Errorf("unexpected payload %+v", gotSpec.JobPayload)
	}
	if len(gotSpec.Tasks) != 1 || gotSpec.Tasks[0].Type != "extract" || !gotSpec.Tasks[0].TaskProperties.Params.ExtractImages {
		t.Errorf("unexpected tasks %+v", gotSpec.Tasks)
	}
}

func TestClient_BareJobIDAndRetryablePoll(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/submit_job", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"abc"`))
	})
	mux.HandleFunc("GET /v1/fetch_job/abc", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data": ` + sampleResult + `}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	raws, err := testClient(srv.URL, 5*time.Second).Extract(context.Background(), writeSource(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 2 {
		t.Errorf("expected 2 elements, got %d", len(raws))
	}
}

func TestClient_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/submit_job", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id": "slow"}`))
	})
	mux.HandleFunc("GET /v1/fetch_job/slow", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).Extract(context.Background(), writeSource(t))
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestClient_CallerCancelIsNotTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/submit_job", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id": "slow"}`))
	})
	mux.HandleFunc("GET /v1/fetch_job/slow", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient(srv.URL, time.Minute).Extract(ctx, writeSource(t))
	if errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("expected cancellation, got timeout: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClient_FetchClientError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/submit_job", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id": "gone"}`))
	})
	mux.HandleFunc("GET /v1/fetch_job/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such job", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Extract(context.Background(), writeSource(t))
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected 404 error, got %v", err)
	}
}

func TestClient_UnsupportedExtension(t *testing.T) {
	c := testClient("http://127.0.0.1:0", time.Second)
	if _, err := c.Extract(context.Background(), "archive.zip"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
