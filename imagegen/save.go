package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	downloadChunk   = 8192
	maxFilenameBase = 80
	suffixLen       = 6
)

// Download streams url into dest in fixed-size chunks.
func Download(ctx context.Context, client *http.Client, url, dest string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: http %d", url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.CopyBuffer(out, resp.Body, make([]byte, downloadChunk)); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	return out.Close()
}

// SaveBase64 decodes payload, optionally prefixed with a data URI header such
// as "data:image/png;base64,", and writes the bytes to dest.
func SaveBase64(payload, dest string) error {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return fmt.Errorf("save base64: data uri without payload")
		}
		payload = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("save base64: %w", err)
	}
	return os.WriteFile(dest, data, 0o644)
}

// SafeFilename turns topic into "<sanitized>_<6 hex>.png". Letters, digits,
// spaces, hyphens and underscores survive; everything else becomes "_". The
// sanitized part is capped at 80 characters and spaces become underscores.
func SafeFilename(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	safe := []rune(b.String())
	if len(safe) > maxFilenameBase {
		safe = safe[:maxFilenameBase]
	}
	name := strings.TrimSpace(string(safe))
	unique := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return strings.ReplaceAll(fmt.Sprintf("%s_%s.png", name, unique), " ", "_")
}
