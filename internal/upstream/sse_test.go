package upstream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectFrames(t *testing.T, input string) []string {
	t.Helper()

	relay := newSSERelay(strings.NewReader(input))

	var frames []string

	for {
		frame, err := relay.Next()
		if err == io.EOF {
			return frames
		}

		require.NoError(t, err)
		frames = append(frames, string(frame))
	}
}

func TestSSERelay_ForwardsDataLinesInOrder(t *testing.T) {
	input := "event: chunk\ndata: {\"n\":1}\n\ndata: {\"n\":2}\n\ndata: [DONE]\n\n"

	frames := collectFrames(t, input)

	assert.Equal(t, []string{
		"data: {\"n\":1}\n\n",
		"data: {\"n\":2}\n\n",
		"data: [DONE]\n\n",
	}, frames)
}

func TestSSERelay_DropsNonDataLines(t *testing.T) {
	input := ": keepalive comment\n\nevent: ping\nretry: 100\n\ndata: {\"n\":1}\n\n"

	frames := collectFrames(t, input)

	assert.Equal(t, []string{"data: {\"n\":1}\n\n"}, frames)
}

func TestSSERelay_FlushesTailAtEOF(t *testing.T) {
	// No trailing blank line; the residue still goes through the same rule.
	input := "data: {\"n\":1}\n\ndata: {\"tail\":true}"

	frames := collectFrames(t, input)

	assert.Equal(t, []string{
		"data: {\"n\":1}\n\n",
		"data: {\"tail\":true}\n\n",
	}, frames)
}

func TestSSERelay_MultipleDataLinesInOneFrame(t *testing.T) {
	input := "data: part1\ndata: part2\n\n"

	frames := collectFrames(t, input)

	require.Len(t, frames, 1)
	assert.Equal(t, "data: part1\n\ndata: part2\n\n", frames[0])
}

func TestSSERelay_CRLFFrames(t *testing.T) {
	input := "data: {\"n\":1}\r\n\ndata: {\"n\":2}\r\n\n"

	frames := collectFrames(t, input)

	assert.Equal(t, []string{
		"data: {\"n\":1}\n\n",
		"data: {\"n\":2}\n\n",
	}, frames)
}

func TestSSERelay_EmptyStream(t *testing.T) {
	assert.Empty(t, collectFrames(t, ""))
}
