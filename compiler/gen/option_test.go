package gen

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithHeader(t *testing.T) {
	t.Run("sets header", func(t *testing.T) {
		c := &Config{}
		err := WithHeader("// Custom header")(c)

		require.NoError(t, err)
		assert.Equal(t, "// Custom header", c.Header)
	})

	t.Run("empty header is allowed", func(t *testing.T) {
		c := &Config{Header: "existing"}
		err := WithHeader("")(c)

		require.NoError(t, err)
		assert.Equal(t, "", c.Header)
	})
}

func TestOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"package", WithPackage("")},
		{"target", WithTarget("")},
		{"fs", WithFs(nil)},
		{"logger", WithLogger(nil)},
		{"workers", WithWorkers(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opt(&Config{})
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.ErrorIs(t, err, ErrMissingConfig)
		})
	}
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		c, err := NewConfig(WithPackage("example.com/app/dao"), WithTarget("/out/dao"), WithFs(fs), WithLogger(zap.NewNop()))
		require.NoError(t, err)
		assert.Equal(t, "dao", c.PackageName())
		assert.Equal(t, "Code generated by oolong. DO NOT EDIT.", c.Header)
		assert.Positive(t, c.Workers)
		assert.Same(t, fs, c.Fs)
	})

	t.Run("missing package", func(t *testing.T) {
		_, err := NewConfig(WithTarget("/out"))
		require.Error(t, err)
		assert.ErrorContains(t, err, `"Package"`)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := NewConfig(WithPackage("example.com/app/dao"))
		assert.ErrorContains(t, err, `"Target"`)
	})

	t.Run("collects every error", func(t *testing.T) {
		err := (&Config{}).ApplyAll(WithPackage(""), WithTarget(""))
		require.Error(t, err)
		assert.ErrorContains(t, err, "Package")
		assert.ErrorContains(t, err, "Target")
	})
}
