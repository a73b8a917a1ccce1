package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q", out)
	}
	payload, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(payload), "[llm]") {
		t.Fatalf("sample config missing llm section: %s", payload)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
}

func TestJobsCommandRendersTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query()["status"]; len(got) != 1 || got[0] != "failed" {
			t.Errorf("status query = %v", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]jobView{"jobs": {
			{ID: 7, Title: "My Show S01E02", Status: "failed", ProgressStage: "translating", ProgressPercent: 40},
		}})
	}))
	defer server.Close()

	out, err := runCommand(t, "jobs", "--server", server.URL, "--status", "failed")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !strings.Contains(out, "My Show S01E02") || !strings.Contains(out, "failed") {
		t.Fatalf("output = %q", out)
	}
}

func TestJobsCommandEmptyQueue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]jobView{"jobs": {}})
	}))
	defer server.Close()

	out, err := runCommand(t, "jobs", "--server", server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No jobs") {
		t.Fatalf("output = %q", out)
	}
}

func TestCancelCommand(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	out, err := runCommand(t, "cancel", "42", "--server", server.URL)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if path != "/api/jobs/42/cancel" {
		t.Fatalf("path = %q", path)
	}
	if !strings.Contains(out, "Cancellation requested") {
		t.Fatalf("output = %q", out)
	}
}

func TestCancelCommandSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "job is not cancellable"})
	}))
	defer server.Close()

	_, err := runCommand(t, "cancel", "42", "--server", server.URL)
	if err == nil || !strings.Contains(err.Error(), "not cancellable") {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderProgressCompleted(t *testing.T) {
	stream := strings.Join([]string{
		`{"step":"job","progress":0,"message":"Job 1 accepted (token abc)","status":"idle"}`,
		`{"step":"translating","progress":50,"message":"Translated batch 1 of 2","status":"processing"}`,
		`{"step":"job","progress":100,"message":"","status":"completed","result":{"subtitles":{"srt":"/out/movie_en.srt"},"language":"ja"}}`,
	}, "\n") + "\n"

	out := &bytes.Buffer{}
	if err := renderProgress(out, strings.NewReader(stream)); err != nil {
		t.Fatalf("renderProgress: %v", err)
	}
	rendered := out.String()
	if !strings.Contains(rendered, "Translated batch 1 of 2") {
		t.Fatalf("output = %q", rendered)
	}
	if !strings.Contains(rendered, "Detected language: ja") || !strings.Contains(rendered, "/out/movie_en.srt") {
		t.Fatalf("output = %q", rendered)
	}
}

func TestRenderProgressFailed(t *testing.T) {
	stream := `{"step":"job","progress":0,"message":"translating: expected 4 lines, got 3","status":"error"}` + "\n"

	err := renderProgress(&bytes.Buffer{}, strings.NewReader(stream))
	if err == nil || !strings.Contains(err.Error(), "expected 4 lines") {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderProgressTruncatedStream(t *testing.T) {
	stream := `{"step":"extracting","progress":10,"message":"","status":"processing"}` + "\n"

	err := renderProgress(&bytes.Buffer{}, strings.NewReader(stream))
	if err == nil || !strings.Contains(err.Error(), "ended before") {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderTableAlignmentAndPadding(t *testing.T) {
	out := renderTable(
		[]tableColumn{{header: "ID", numeric: true}, {header: "Name"}},
		[][]string{{"7", "alpha"}, {"42"}},
	)
	if !strings.Contains(out, "│  7 │") {
		t.Fatalf("numeric column not right-aligned:\n%s", out)
	}
	if !strings.Contains(out, "│ 42 │") {
		t.Fatalf("short row not padded:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("no columns should render nothing")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("a", 50)
	got := truncate(long, 40)
	if len(got) > 40 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q (len %d)", got, len(got))
	}
}
