package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CollectionConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg: CollectionConfig{
				CollectionType: "repositories",
				Categories:     []string{"dev_tools", "utilities_misc"},
			},
		},
		{
			name:    "missing type",
			cfg:     CollectionConfig{Categories: []string{"a"}},
			wantErr: true,
		},
		{
			name:    "no categories",
			cfg:     CollectionConfig{CollectionType: "generic"},
			wantErr: true,
		},
		{
			name: "empty category entry",
			cfg: CollectionConfig{
				CollectionType: "generic",
				Categories:     []string{"a", ""},
			},
			wantErr: true,
		},
		{
			name: "duplicate category",
			cfg: CollectionConfig{
				CollectionType: "generic",
				Categories:     []string{"a", "a"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatsDefaultsToMarkdown(t *testing.T) {
	cfg := CollectionConfig{CollectionType: "generic", Categories: []string{"a"}}
	assert.Equal(t, []string{"markdown"}, cfg.Formats())

	cfg.OutputFormats = []string{"json", "html"}
	assert.Equal(t, []string{"json", "html"}, cfg.Formats())
}

func TestHasCategory(t *testing.T) {
	cfg := CollectionConfig{Categories: []string{"dev_tools", "creative_aesthetic"}}
	assert.True(t, cfg.HasCategory("dev_tools"))
	assert.False(t, cfg.HasCategory("Dev_Tools"), "category matching is exact")
	assert.False(t, cfg.HasCategory(""))
}
