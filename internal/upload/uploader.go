// ABOUTME: Upload client for the hub's audio storage collaborator
// ABOUTME: Sends multipart uploads and returns the stored asset path
package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotAudio rejects files whose media type is not audio/*
var ErrNotAudio = fmt.Errorf("only audio files are allowed")

// The stdlib's builtin extension table has no audio entries and the
// system table is not guaranteed to exist, so register the formats we
// handle ourselves.
func init() {
	for ext, typ := range map[string]string{
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".flac": "audio/flac",
		".ogg":  "audio/ogg",
		".m4a":  "audio/mp4",
		".aac":  "audio/aac",
		".opus": "audio/opus",
	} {
		mime.AddExtensionType(ext, typ)
	}
}

// Result is the storage collaborator's answer to a successful upload
type Result struct {
	Path string `json:"path"`
}

// Uploader pushes audio files to the hub's storage endpoint
type Uploader struct {
	baseURL string
	client  *http.Client
}

// New creates an uploader for the hub at baseURL (http://host:port)
func New(baseURL string) *Uploader {
	return &Uploader{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ContentType derives the declared media type from the file extension
func ContentType(filename string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
}

// Upload stores the file under the entity's audio directory and
// returns its opaque location path. If the per-entity target fails,
// the flat audio root is tried as a fallback before giving up.
func (u *Uploader) Upload(entity, filePath string) (string, error) {
	contentType := ContentType(filePath)
	if !strings.HasPrefix(contentType, "audio/") {
		return "", fmt.Errorf("%w (got %q)", ErrNotAudio, contentType)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	filename := filepath.Base(filePath)

	path, err := u.post(entity, filename, contentType, data)
	if err != nil {
		log.Printf("Upload to entity path failed, trying fallback: %v", err)
		path, err = u.post("", filename, contentType, data)
		if err != nil {
			return "", fmt.Errorf("upload failed: %w", err)
		}
	}

	return path, nil
}

// post performs one multipart upload. An empty entity targets the
// flat audio root.
func (u *Uploader) post(entity, filename, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload form: %w", err)
	}

	target := u.baseURL + "/upload"
	if entity != "" {
		target += "?entity=" + url.QueryEscape(entity)
	}

	req, err := http.NewRequest(http.MethodPost, target, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Audio-Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload rejected: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if result.Path == "" {
		return "", fmt.Errorf("upload response missing path")
	}

	return result.Path, nil
}
