package gen

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("Workers", -1, "workers must be positive")
	assert.EqualError(t, err, `oolong: config error for "Workers" (value: -1): workers must be positive`)
	assert.EqualError(t, NewConfigError("Package", nil, "missing"), `oolong: config error for "Package": missing`)

	wrapped := errors.Wrap(err, "generate")
	assert.True(t, IsConfigError(wrapped))
	assert.ErrorIs(t, wrapped, ErrMissingConfig)
	assert.False(t, IsConfigError(errors.New("other")))
}
