package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "  hello, world, hello, , ", want: []string{"hello", "world"}},
		{in: "", want: []string{}},
		{in: "Tea,tea", want: []string{"Tea", "tea"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTags(tt.in), tt.in)
	}
}

func TestAllTags(t *testing.T) {
	got := AllTags([]Memory{{Tags: []string{"b", "a"}}, {Tags: []string{"b", "C"}}, {}})
	assert.Equal(t, []string{"a", "b", "C"}, got)
}
