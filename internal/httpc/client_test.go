package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/start_emulator" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Pixel_7" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"status":"ok","serial":"emulator-5554"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	var out struct {
		Status string `json:"status"`
		Serial string `json:"serial"`
	}
	err := c.PostJSON(context.Background(), "/start_emulator", map[string]any{"name": "Pixel_7", "port": 5554}, &out)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.Serial != "emulator-5554" {
		t.Errorf("serial = %q", out.Serial)
	}
}

func TestStatusErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Port must be an even number (e.g. 5554, 5556, ...)"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).PostJSON(context.Background(), "/start_emulator", map[string]int{"port": 5555}, nil)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != 400 || se.Detail != "Port must be an even number (e.g. 5554, 5556, ...)" {
		t.Errorf("got %+v", se)
	}
}

func TestStatusErrorRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	var se *StatusError
	err := New(srv.URL, time.Second).GetJSON(context.Background(), "/api/health", nil)
	if !errors.As(err, &se) || se.Detail != "upstream down" {
		t.Fatalf("got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := New(srv.URL, 20*time.Millisecond).GetJSON(context.Background(), "/api/health", nil)
	if err == nil {
		t.Fatal("expected timeout")
	}
}
