package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_CreateJob(t *testing.T) {
	var receivedAuth string
	var receivedBody CreateJobRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/predictions" {
			t.Errorf("expected /predictions, got %s", r.URL.Path)
		}
		receivedAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&receivedBody)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "job-123",
			"status": "starting",
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Token: "secret"})

	job, err := client.CreateJob(context.Background(), &CreateJobRequest{
		Version: "v1",
		Input:   map[string]any{"prompt": "a photo of sks dog"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.ID != "job-123" {
		t.Errorf("expected job-123, got %s", job.ID)
	}
	if job.Status != StatusStarting {
		t.Errorf("expected starting, got %s", job.Status)
	}
	if receivedAuth != "Token secret" {
		t.Errorf("expected token auth header, got %q", receivedAuth)
	}
	if receivedBody.Version != "v1" {
		t.Errorf("expected version v1, got %s", receivedBody.Version)
	}
}

func TestClient_CreateJob_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "invalid version"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	_, err := client.CreateJob(context.Background(), &CreateJobRequest{Version: "bad"})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
}

func TestClient_CreateJob_NotFoundIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "version does not exist"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	// 404 на create — тоже отказ в создании, а не пропавший job
	_, err := client.CreateJob(context.Background(), &CreateJobRequest{Version: "gone"})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
	if errors.Is(err, ErrJobNotFound) {
		t.Errorf("create must not map to ErrJobNotFound, got %v", err)
	}
}

func TestClient_GetJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions/job-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "job-42",
			"status": "succeeded",
			"output": []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	job, err := client.GetJob(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", job.Status)
	}
	if len(job.Output) != 2 {
		t.Errorf("expected 2 outputs, got %d", len(job.Output))
	}
}

func TestClient_GetJob_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	_, err := client.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestOutputURLs_Unmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		// training возвращает output строкой, inference — массивом
		{"string", `{"id":"x","status":"succeeded","output":"https://x/model.zip"}`, 1},
		{"array", `{"id":"x","status":"succeeded","output":["https://x/1.jpg","https://x/2.jpg"]}`, 2},
		{"null", `{"id":"x","status":"processing","output":null}`, 0},
		{"absent", `{"id":"x","status":"starting"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var job Job
			if err := json.Unmarshal([]byte(tt.input), &job); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(job.Output) != tt.expected {
				t.Errorf("expected %d outputs, got %d", tt.expected, len(job.Output))
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusSucceeded, StatusFailed, StatusCanceled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	pending := []Status{StatusStarting, StatusProcessing}
	for _, s := range pending {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
