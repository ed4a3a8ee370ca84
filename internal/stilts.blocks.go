package internal

import (
	"go.uber.org/zap"
)

// BlockPolicy decides what happens when a template defines a block name twice
type BlockPolicy int

const (
	// DuplicateBlocksError rejects a second definition of the same name
	DuplicateBlocksError BlockPolicy = iota
	// DuplicateBlocksLastWins keeps the last definition in source order
	DuplicateBlocksLastWins
)

// Block policy names used in configuration files
const (
	BlockPolicyNameError    = "error"
	BlockPolicyNameLastWins = "last_wins"
)

// String returns the configuration name of the policy
func (p BlockPolicy) String() string {
	if p == DuplicateBlocksLastWins {
		return BlockPolicyNameLastWins
	}
	return BlockPolicyNameError
}

// ParseBlockPolicy converts a configuration name into a policy
func ParseBlockPolicy(name string) (BlockPolicy, bool) {
	switch name {
	case "", BlockPolicyNameError:
		return DuplicateBlocksError, true
	case BlockPolicyNameLastWins:
		return DuplicateBlocksLastWins, true
	}
	return DuplicateBlocksError, false
}

// CollectBlocks builds the block registry of a template: every block by
// name, including blocks nested inside other blocks. The returned error is
// a *Diagnostic pointing at the second definition of a duplicated name.
func CollectBlocks(root *RootNode, policy BlockPolicy, logger *zap.Logger) (map[string]*BlockNode, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	blocks := make(map[string]*BlockNode)
	var dup error

	Walk(root.Children, func(n Node) bool {
		if dup != nil {
			return false
		}
		block, ok := n.(*BlockNode)
		if !ok {
			return true
		}
		if first, exists := blocks[block.Name]; exists {
			if policy == DuplicateBlocksError {
				dup = NewDiagnosticf(root.Cursor(block.Span()), ErrMsgDuplicateBlock, block.Name).
					WithRelated(NewDiagnostic(ErrMsgFirstDefinedHere, root.Cursor(first.Span())).WithLabel(ErrMsgFirstDefinedHere))
				return false
			}
			logger.Debug(LogMsgDuplicateBlock, zap.String(LogFieldBlock, block.Name))
		}
		blocks[block.Name] = block
		return true
	})

	if dup != nil {
		return nil, dup
	}
	return blocks, nil
}
