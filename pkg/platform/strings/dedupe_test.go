package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeFoldTable(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil stays nil", in: nil, want: nil},
		{name: "trims and drops blanks", in: []string{" Museum ", "", "  ", "Fair"}, want: []string{"Museum", "Fair"}},
		{name: "keeps first occurrence order", in: []string{"Fair", "Museum", "Fair"}, want: []string{"Fair", "Museum"}},
		{name: "first spelling wins", in: []string{"Museum", "museum"}, want: []string{"Museum"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeFold(tt.in))
		})
	}
}

func TestDedupeFold(t *testing.T) {
	assert.Equal(t,
		[]string{"Street Art", "Museum"},
		DedupeFold([]string{" Street Art", "Museum", "street art ", "MUSEUM", ""}),
	)
	assert.Empty(t, DedupeFold([]string{}))
}
