// Package io provides a ByteLoader for content that is already in memory,
// such as multipart uploads that never touch disk.
package io

import (
	"context"

	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"
)

// BytesSourceLoader serves fixed, already-loaded content regardless of the
// source passed in.
type BytesSourceLoader struct {
	content []byte
}

// NewBytesSourceLoader creates a byte loader that always returns content.
func NewBytesSourceLoader(content []byte) *BytesSourceLoader {
	return &BytesSourceLoader{content: content}
}

func (l *BytesSourceLoader) GetFileBytes(ctx context.Context, src loader.TextSource) ([]byte, error) {
	return l.content, nil
}
