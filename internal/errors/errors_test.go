package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatalFollowsChain(t *testing.T) {
	dbErr := DatabaseErrorf(fmt.Errorf("disk I/O error"), "save snapshot")
	assert.True(t, IsFatal(dbErr))
	assert.True(t, IsFatal(fmt.Errorf("build: %w", dbErr)))
	assert.Equal(t, ErrorTypeDatabase, GetType(fmt.Errorf("build: %w", dbErr)))

	assert.False(t, IsFatal(ExternalErrorf(fmt.Errorf("429"), "embed")))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
	assert.Equal(t, ErrorTypeInternal, GetType(fmt.Errorf("plain")))
	assert.Equal(t, SeverityHigh, GetSeverity(fmt.Errorf("plain")))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeDatabase, SeverityCritical, "noop"))
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("merge: %w", MissingTypeError("edge", "user__buys__item"))
	assert.True(t, Is(err, ErrMissingType))
	assert.False(t, Is(err, ErrInvalidSchema))
	assert.False(t, Is(err, ErrNotImplemented))
	assert.True(t, Is(SchemaErrorf("bad"), ErrInvalidSchema))
}

func TestDetailedString(t *testing.T) {
	err := NetworkErrorf(fmt.Errorf("connection refused"), "failed to connect to redis at %s", "localhost:6379").
		WithContext("prefix", "kgbuilder:emb:").
		WithContext("db", 0)

	out := err.DetailedString()
	assert.Contains(t, out, "[HIGH] [NETWORK] failed to connect to redis at localhost:6379\n")
	assert.Contains(t, out, "Caused by: connection refused\n")
	assert.Contains(t, out, "Context:\n  db: 0\n  prefix: kgbuilder:emb:\n")
	assert.Contains(t, out, "Stack trace:\n")
}
