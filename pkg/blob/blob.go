// Package blob stores binary assets (images, resumes) in an object
// storage service and hands back stable public references for embedding
// in relational records.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
)

// Store is the object storage contract. The relational store and the
// object store share no transaction; callers own the consistency policy.
type Store interface {
	// Put uploads an object under key and returns its public reference.
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)

	// Delete removes the object under key.
	Delete(ctx context.Context, key string) error

	// URL returns the public reference for a key.
	URL(key string) string

	// KeyForURL maps a public reference back to its storage key.
	// Returns false for references this store did not issue.
	KeyForURL(ref string) (string, bool)
}

const maxKeyNameLen = 80

// BuildKey derives a collision-resistant storage key from an upload
// filename: millisecond timestamp plus the sanitized name, under the
// given family prefix.
func BuildKey(prefix, filename string) string {
	return fmt.Sprintf(
		"%s/%d-%s",
		strings.Trim(prefix, "/"),
		time.Now().UnixMilli(),
		sanitizeName(filename),
	)
}

// sanitizeName reduces a filename to a safe key fragment: lowercase
// letters, digits, dots and dashes, everything else collapsed to a
// single dash.
func sanitizeName(name string) string {
	// Strip any client-supplied directory part.
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder

	lastDash := false

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLower(r) || unicode.IsDigit(r) || r == '.' || r == '-':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		out = "file"
	}

	if len(out) > maxKeyNameLen {
		out = out[:maxKeyNameLen]
	}

	return out
}
