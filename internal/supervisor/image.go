package supervisor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sniffImageMIME infers an image MIME type from magic-byte prefixes,
// defaulting to PNG when undetermined.
func sniffImageMIME(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(b, []byte{0x89, 'P', 'N', 'G'}):
		return "image/png"
	case bytes.HasPrefix(b, []byte("GIF8")):
		return "image/gif"
	case len(b) >= 12 && bytes.HasPrefix(b, []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return "image/webp"
	}
	return "image/png"
}

// mimeFromExt maps a file extension to an image MIME type; empty when unknown.
func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// resolveImage turns either an inline base64 payload or a file path into a
// data URL for the chat completion request.
func resolveImage(inlineBase64, path string) (string, error) {
	if inlineBase64 != "" {
		payload := inlineBase64
		// accept full data URLs and keep only the payload
		if strings.HasPrefix(payload, "data:") {
			if idx := strings.Index(payload, "base64,"); idx >= 0 {
				payload = payload[idx+len("base64,"):]
			}
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", fmt.Errorf("invalid base64 image: %w", err)
		}
		return "data:" + sniffImageMIME(raw) + ";base64," + payload, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := mimeFromExt(path)
	if mime == "" {
		mime = sniffImageMIME(raw)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
