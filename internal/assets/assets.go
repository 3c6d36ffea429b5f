package assets

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Uploader stores image bytes and returns a durable public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Extension picks the stored file extension for a mime type.
func Extension(mimeType string) string {
	if strings.Contains(strings.ToLower(mimeType), "png") {
		return "png"
	}
	return "jpg"
}

// SupabaseUploader writes covers into a Supabase storage bucket.
type SupabaseUploader struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
	HTTPClient *http.Client
}

// NewSupabaseUploader creates an uploader for bucket
func NewSupabaseUploader(baseURL, serviceKey, bucket string) *SupabaseUploader {
	return &SupabaseUploader{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		Bucket:     bucket,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (u *SupabaseUploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if u.BaseURL == "" || u.ServiceKey == "" {
		return "", fmt.Errorf("missing supabase storage config")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	objectPath := fmt.Sprintf("covers/%s.%s", uuid.NewString(), Extension(mimeType))
	bucket := url.PathEscape(u.Bucket)
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.BaseURL, bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("apikey", u.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+u.ServiceKey)
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("x-upsert", "true")

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("storage API returned status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.BaseURL, bucket, objectPath), nil
}

// LocalUploader writes covers to a directory served under PublicBaseURL.
// Files are named by content hash so re-uploading the same image is a no-op.
type LocalUploader struct {
	Dir           string
	PublicBaseURL string
}

func NewLocalUploader(dir, publicBaseURL string) *LocalUploader {
	return &LocalUploader{Dir: dir, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (u *LocalUploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(u.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	sum := md5.Sum(data)
	filename := hex.EncodeToString(sum[:]) + "." + Extension(mimeType)
	if err := os.WriteFile(filepath.Join(u.Dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return u.PublicBaseURL + "/" + filename, nil
}
