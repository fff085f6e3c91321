package sliceutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkWithSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     []int
		chunkSize int
		want      [][]int
	}{
		{name: "even split", input: []int{1, 2, 3, 4}, chunkSize: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", input: []int{1, 2, 3, 4, 5}, chunkSize: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "chunk larger than input", input: []int{1, 2}, chunkSize: 10, want: [][]int{{1, 2}}},
		{name: "single element chunks", input: []int{1, 2, 3}, chunkSize: 1, want: [][]int{{1}, {2}, {3}}},
		{name: "empty input", input: []int{}, chunkSize: 3, want: [][]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ChunkWithSize(tt.input, tt.chunkSize))
		})
	}
}
