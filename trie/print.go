package trie

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// PrintTree renders the top maxDepth levels below the root. Nodes that were
// paired with themselves are marked "(dup)". maxDepth <= 0 renders the whole
// tree.
func (mt *BatchMerkleTree) PrintTree(maxDepth int) string {
	top := len(mt.levels) - 1
	if maxDepth <= 0 || maxDepth > top {
		maxDepth = top
	}
	tree := treeprint.NewWithRoot(fmt.Sprintf("root %s (depth %d, leaves %d)", mt.Root().Short(), mt.Depth(), mt.Len()))
	mt.addChildren(tree, top, 0, top-maxDepth)
	return tree.String()
}

func (mt *BatchMerkleTree) addChildren(branch treeprint.Tree, level, pos, stop int) {
	if level <= stop {
		return
	}
	below := mt.levels[level-1]
	for _, child := range []int{2 * pos, 2*pos + 1} {
		if child >= len(below) {
			branch.AddNode(fmt.Sprintf("L%d[%d] %s (dup)", level-1, child, below[2*pos].Short()))
			continue
		}
		label := fmt.Sprintf("L%d[%d] %s", level-1, child, below[child].Short())
		if level-1 == stop {
			branch.AddNode(label)
			continue
		}
		mt.addChildren(branch.AddBranch(label), level-1, child, stop)
	}
}
