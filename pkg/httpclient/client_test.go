package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientDoRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	picker, err := NewBestURLPicker(srv.URL)
	if err != nil {
		t.Fatalf("NewBestURLPicker: %v", err)
	}
	client := New("test-venue", picker, 0)

	resp, err := client.Do(context.Background(), http.MethodGet, "/ping", nil, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	body, err := ReadAll(resp)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got, want := string(body), `{"ok":true}`; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if got := picker.NbRequestsDone(); got != 1 {
		t.Errorf("NbRequestsDone() = %d, want 1", got)
	}
}

func TestClientEnforcesMinimumSpacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	picker, _ := NewBestURLPicker(srv.URL)
	client := New("test-venue", picker, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("3 requests with 50ms spacing took %v, want at least 100ms", elapsed)
	}
}

func TestClientRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	picker, _ := NewBestURLPicker(srv.URL)
	client := New("test-venue", picker, time.Hour)

	// Prime lastRequestAt so the second call would have to wait an hour.
	if _, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := client.Do(ctx, http.MethodGet, "/", nil, nil); err == nil {
		t.Fatal("expected context deadline error while waiting for spacing")
	}
}
