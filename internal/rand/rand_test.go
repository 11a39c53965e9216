package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestIDLengthAndCharset(t *testing.T) {
	id := NewRequestID(16)
	assert.Len(t, id, 16)
	for _, c := range id {
		assert.Contains(t, charset, string(c))
	}
}

func TestNewRequestIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := NewRequestID(16)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
