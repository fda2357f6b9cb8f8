// ABOUTME: Audio upload endpoint for the hub's storage collaborator
// ABOUTME: Stores files under the data directory and returns their path
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuecast/cuecast-go/internal/upload"
)

// maxUploadBytes caps a single audio upload
const maxUploadBytes = 64 << 20 // 64 MiB

// handleUpload stores an uploaded audio file and answers with its
// opaque location path. Uploads land under audio/<entity>/, or the
// flat audio/ root when no entity is given.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("invalid upload: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	if contentType := declaredContentType(r, filename); !strings.HasPrefix(contentType, "audio/") {
		http.Error(w, "only audio files are allowed", http.StatusUnsupportedMediaType)
		return
	}

	entity := sanitizeSegment(r.URL.Query().Get("entity"))

	relDir := "audio"
	if entity != "" {
		relDir = filepath.Join("audio", entity)
	}
	dir := filepath.Join(s.config.DataDir, relDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Upload failed, cannot create %s: %v", dir, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	dest := filepath.Join(dir, filename)
	out, err := os.Create(dest)
	if err != nil {
		log.Printf("Upload failed, cannot create %s: %v", dest, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		log.Printf("Upload failed, cannot write %s: %v", dest, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	path := "/" + strings.ReplaceAll(filepath.Join(relDir, filename), string(filepath.Separator), "/")
	log.Printf("Stored upload: %s (%d bytes)", path, header.Size)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"path": path})
}

// declaredContentType prefers the uploader's declared audio type and
// falls back to the filename extension
func declaredContentType(r *http.Request, filename string) string {
	if ct := r.Header.Get("X-Audio-Content-Type"); ct != "" {
		return ct
	}
	return upload.ContentType(filename)
}

// sanitizeSegment reduces an entity name to a single safe path segment
func sanitizeSegment(s string) string {
	s = filepath.Base(strings.TrimSpace(s))
	if s == "." || s == string(filepath.Separator) {
		return ""
	}
	return s
}
