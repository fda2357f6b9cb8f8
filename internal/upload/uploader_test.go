// ABOUTME: Tests for the upload client
// ABOUTME: Exercises the audio guard and the flat-root fallback
package upload

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestUploadSendsMultipartAndReturnsPath(t *testing.T) {
	var gotEntity, gotContentType, gotFilename string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEntity = r.URL.Query().Get("entity")
		gotContentType = r.Header.Get("X-Audio-Content-Type")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("bad multipart form: %v", err)
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
		} else {
			gotFilename = header.Filename
		}

		json.NewEncoder(w).Encode(Result{Path: "/audio/storm-herald/bell.wav"})
	}))
	defer ts.Close()

	file := writeTempFile(t, "bell.wav", []byte("audio bytes"))

	path, err := New(ts.URL).Upload("storm-herald", file)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if path != "/audio/storm-herald/bell.wav" {
		t.Errorf("unexpected path: %s", path)
	}
	if gotEntity != "storm-herald" {
		t.Errorf("entity not forwarded: %q", gotEntity)
	}
	if gotContentType != "audio/wav" {
		t.Errorf("wrong declared content type: %q", gotContentType)
	}
	if gotFilename != "bell.wav" {
		t.Errorf("wrong filename: %q", gotFilename)
	}
}

func TestUploadRejectsNonAudioLocally(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	file := writeTempFile(t, "notes.txt", []byte("not audio"))

	_, err := New(ts.URL).Upload("storm-herald", file)
	if !errors.Is(err, ErrNotAudio) {
		t.Fatalf("expected ErrNotAudio, got %v", err)
	}
	if called {
		t.Error("non-audio file must not reach the hub")
	}
}

func TestUploadFallsBackToFlatRoot(t *testing.T) {
	var requests []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		if r.URL.Query().Get("entity") != "" {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Result{Path: "/audio/bell.wav"})
	}))
	defer ts.Close()

	file := writeTempFile(t, "bell.wav", []byte("audio bytes"))

	path, err := New(ts.URL).Upload("storm-herald", file)
	if err != nil {
		t.Fatalf("upload should succeed via fallback: %v", err)
	}
	if path != "/audio/bell.wav" {
		t.Errorf("unexpected path: %s", path)
	}
	if len(requests) != 2 {
		t.Fatalf("expected entity attempt then fallback, got %v", requests)
	}
}

func TestUploadFailsWhenBothTargetsRefuse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage error", http.StatusInternalServerError)
	}))
	defer ts.Close()

	file := writeTempFile(t, "bell.wav", []byte("audio bytes"))

	if _, err := New(ts.URL).Upload("storm-herald", file); err == nil {
		t.Fatal("expected an error when the hub refuses both targets")
	}
}

func TestContentType(t *testing.T) {
	if ct := ContentType("x.mp3"); ct != "audio/mpeg" {
		t.Errorf("mp3: got %q", ct)
	}
	if ct := ContentType("x.wav"); ct != "audio/wav" {
		t.Errorf("wav: got %q", ct)
	}
	if ct := ContentType("x.txt"); strings.HasPrefix(ct, "audio/") {
		t.Errorf("txt must not be audio: got %q", ct)
	}
}
