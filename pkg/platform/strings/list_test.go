package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "only separators", input: " , ,", want: nil},
		{name: "single", input: "mod", want: []string{"mod"}},
		{name: "trims", input: " alice , bob", want: []string{"alice", "bob"}},
		{name: "drops repeats keeping first", input: "b,a,b,c,a", want: []string{"b", "a", "c"}},
		{name: "case sensitive", input: "Mod,mod", want: []string{"Mod", "mod"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.input, ","))
		})
	}
}
