package gitstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlightFor(t *testing.T) {
	tests := []struct {
		code     string
		expected Category
	}{
		{"M ", CategoryModified},
		{" M", CategoryModified},
		{" D", CategoryDeleted},
		{"D ", CategoryDeleted},
		{"A ", CategoryAdded},
		{"R ", CategoryRenamed},
		{"C ", CategoryCopied},
		{"??", CategoryUntracked},
		{"MD", CategoryDeleted},
		{"AM", CategoryModified},
		{"RM", CategoryModified},
		{"AD", CategoryDeleted},
		{"!!", CategoryNone},
		{"UU", CategoryNone},
		{"  ", CategoryNone},
		{"", CategoryNone},
		{"?", CategoryNone},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, HighlightFor(tt.code))
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "none", CategoryNone.String())
	assert.Equal(t, "untracked", CategoryUntracked.String())
}
