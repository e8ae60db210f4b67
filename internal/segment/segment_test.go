package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "blank line split",
			text: "First paragraph.\n\nSecond paragraph.",
			want: []string{"First paragraph.", "Second paragraph."},
		},
		{
			name: "wrapped lines joined",
			text: "A paragraph\nwrapped over\nthree lines.",
			want: []string{"A paragraph wrapped over three lines."},
		},
		{
			name: "empty blocks dropped",
			text: "\n\nOnly one.\n\n\n\n",
			want: []string{"Only one."},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paragraphs(tt.text))
		})
	}
}

func TestSegments_SentencesWithinParagraphs(t *testing.T) {
	text := "We retain data for six months. You may withdraw consent.\n\nBreaches are reported within 72 hours."

	segments, err := Segments(text)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "We retain data for six months.", segments[0])
	assert.Equal(t, "You may withdraw consent.", segments[1])
	assert.Equal(t, "Breaches are reported within 72 hours.", segments[2])
}

func TestSegments_Deterministic(t *testing.T) {
	text := "First sentence. Second sentence.\n\nThird one here."

	first, err := Segments(text)
	require.NoError(t, err)
	second, err := Segments(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSegments_EmptyInput(t *testing.T) {
	segments, err := Segments("   \n\n  ")
	require.NoError(t, err)
	assert.Empty(t, segments)
}
