package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemID(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "simple name", path: "myrepo", want: "myrepo"},
		{name: "nested path", path: "tools/myrepo", want: "tools_myrepo"},
		{name: "backslashes", path: `tools\myrepo`, want: "tools_myrepo"},
		{name: "spaces", path: "my notes.md", want: "my_notes.md"},
		{name: "mixed", path: "a/b c\\d", want: "a_b_c_d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ItemID(tt.path))
		})
	}
}

func TestSetAnnotationSetsBothFields(t *testing.T) {
	it := &CollectionItem{ID: "x", Path: "x", AnnotationError: true}

	it.SetAnnotation("a description", "dev_tools")

	require.NotNil(t, it.Description)
	require.NotNil(t, it.Category)
	assert.Equal(t, "a description", *it.Description)
	assert.Equal(t, "dev_tools", *it.Category)
	assert.False(t, it.AnnotationError, "successful annotation clears the error flag")
	assert.True(t, it.Annotated())
	assert.NoError(t, it.Validate())
}

func TestClearAnnotationClearsBothFields(t *testing.T) {
	it := &CollectionItem{ID: "x", Path: "x"}
	it.SetAnnotation("desc", "cat")

	it.ClearAnnotation()

	assert.Nil(t, it.Description)
	assert.Nil(t, it.Category)
	assert.False(t, it.Annotated())
	assert.NoError(t, it.Validate())
}

func TestValidateRejectsPartialAnnotation(t *testing.T) {
	desc := "only description"
	cat := "only_category"

	tests := []struct {
		name string
		item CollectionItem
		want error
	}{
		{name: "empty path", item: CollectionItem{}, want: ErrItemPathEmpty},
		{
			name: "description without category",
			item: CollectionItem{ID: "x", Path: "x", Description: &desc},
			want: ErrPartialAnnotation,
		},
		{
			name: "category without description",
			item: CollectionItem{ID: "x", Path: "x", Category: &cat},
			want: ErrPartialAnnotation,
		},
		{name: "no annotation", item: CollectionItem{ID: "x", Path: "x"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}
