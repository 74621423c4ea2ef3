// Package attach resolves a canonical content reference into something the
// platform SDK can send: a local file, a remote URL, or a native file id.
package attach

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies a resolved handle.
type Kind int

const (
	// KindPath is a file on the local filesystem.
	KindPath Kind = iota
	// KindURL is a remote reference passed through for the platform to fetch.
	KindURL
	// KindFileID is a platform-native file identifier.
	KindFileID
	// KindOpaque is anything else, passed through unchanged.
	KindOpaque
)

// Handle is a sendable attachment reference.
//
// When the resolver materialized a temporary file, Cleanup removes it.
// Nothing runs Cleanup for you: callers that skip it leave the file behind
// until the OS reclaims the temp dir.
type Handle struct {
	Kind    Kind
	Value   string
	Cleanup func() error
}

// Resolve classifies content in a fixed order: absolute local path (treated
// as an inline base64 payload to materialize), URL, numeric file id, and
// finally an opaque id passed through unchanged.
func Resolve(content string) (Handle, error) {
	switch {
	case isAbsolutePath(content):
		path, err := materialize(content)
		if err != nil {
			// Not a decodable payload; send the path itself.
			return Handle{Kind: KindPath, Value: content}, nil
		}
		return Handle{
			Kind:    KindPath,
			Value:   path,
			Cleanup: func() error { return os.Remove(path) },
		}, nil
	case strings.HasPrefix(content, "http://"), strings.HasPrefix(content, "https://"):
		return Handle{Kind: KindURL, Value: content}, nil
	case isNumeric(content):
		return Handle{Kind: KindFileID, Value: content}, nil
	default:
		return Handle{Kind: KindOpaque, Value: content}, nil
	}
}

// materialize decodes a base64 payload into a fresh temp file and returns
// its path. Every call gets its own filename so concurrent resolutions
// never collide.
func materialize(payload string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decoding inline payload: %w", err)
	}
	path := filepath.Join(os.TempDir(), "attach-"+uuid.NewString())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	return path, nil
}

// EncodeFile reads a local file and returns its base64 encoding, the inline
// form used to carry media across the relay.
func EncodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func isAbsolutePath(s string) bool {
	return strings.HasPrefix(s, "/") || (len(s) > 2 && s[1] == ':' && s[2] == '\\')
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
