package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressLog_CursorFlow(t *testing.T) {
	log := NewProgressLog()
	log.Append("one")
	log.Append("two")

	lines, next := log.Since(0)
	assert.Len(t, lines, 2)
	assert.Equal(t, "one", lines[0].Text)
	assert.Equal(t, "two", lines[1].Text)
	assert.Equal(t, 2, next)

	// nothing new yet
	lines, next = log.Since(next)
	assert.Empty(t, lines)
	assert.Equal(t, 2, next)

	log.Append("three")
	lines, next = log.Since(next)
	if assert.Len(t, lines, 1) {
		assert.Equal(t, "three", lines[0].Text)
		assert.Equal(t, 2, lines[0].Seq)
	}
	assert.Equal(t, 3, next)
}

func TestProgressLog_ClampsCursor(t *testing.T) {
	log := NewProgressLog()
	log.Append("one")

	lines, next := log.Since(-5)
	assert.Len(t, lines, 1)
	assert.Equal(t, 1, next)

	lines, next = log.Since(100)
	assert.Empty(t, lines)
	assert.Equal(t, 1, next)
}

func TestProgressLog_ResetClampsStaleCursors(t *testing.T) {
	log := NewProgressLog()
	log.Append("one")
	log.Append("two")
	_, stale := log.Since(0)

	log.Reset()
	log.Append("fresh")

	lines, next := log.Since(stale)
	assert.Empty(t, lines)
	assert.Equal(t, 1, next)

	lines, _ = log.Since(0)
	if assert.Len(t, lines, 1) {
		assert.Equal(t, "fresh", lines[0].Text)
	}
}
