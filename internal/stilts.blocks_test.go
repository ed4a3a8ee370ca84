package internal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectBlocks(t *testing.T) {
	t.Run("nested blocks are registered", func(t *testing.T) {
		owned := Own(parse(t, `{% block outer %}{% block mid %}{% block inner %}x{% end %}{% end %}{% end %}`))
		blocks, err := CollectBlocks(owned, DuplicateBlocksError, nil)
		require.NoError(t, err)
		assert.Len(t, blocks, 3)
		for _, name := range []string{"outer", "mid", "inner"} {
			assert.Contains(t, blocks, name)
		}
		assert.Equal(t, "x", blocks["inner"].Children[0].(*TextNode).Content)
	})

	t.Run("duplicate is an error by default", func(t *testing.T) {
		text := `{% block a %}1{% end %}{% block a %}2{% end %}`
		owned := Own(parse(t, text))
		_, err := CollectBlocks(owned, DuplicateBlocksError, nil)
		require.Error(t, err)

		var diag *Diagnostic
		require.True(t, errors.As(err, &diag))
		assert.Equal(t, fmt.Sprintf(ErrMsgDuplicateBlock, "a"), diag.Message)
		assert.Equal(t, Range{Start: 23, End: 46}, *diag.Span)
		require.Len(t, diag.Related, 1)
		assert.Equal(t, Range{Start: 0, End: 23}, *diag.Related[0].Span)
	})

	t.Run("last wins", func(t *testing.T) {
		owned := Own(parse(t, `{% block a %}1{% end %}{% block a %}2{% end %}`))
		blocks, err := CollectBlocks(owned, DuplicateBlocksLastWins, nil)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, "2", blocks["a"].Children[0].(*TextNode).Content)
	})

	t.Run("no blocks", func(t *testing.T) {
		blocks, err := CollectBlocks(Own(parse(t, "plain")), DuplicateBlocksError, nil)
		require.NoError(t, err)
		assert.Empty(t, blocks)
	})
}

func TestParseBlockPolicy(t *testing.T) {
	p, ok := ParseBlockPolicy("last_wins")
	require.True(t, ok)
	assert.Equal(t, DuplicateBlocksLastWins, p)
	assert.Equal(t, BlockPolicyNameLastWins, p.String())

	p, ok = ParseBlockPolicy("")
	require.True(t, ok)
	assert.Equal(t, DuplicateBlocksError, p)

	_, ok = ParseBlockPolicy("first_wins")
	assert.False(t, ok)
}
