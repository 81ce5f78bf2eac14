package domain

// The traversal helpers below use an explicit stack rather than recursion so
// that arbitrarily deep export trees cannot exhaust the call stack.

// Visit is called once per node in preorder. Returning false skips the
// node's children.
type Visit func(node *DocumentNode, depth int) bool

// Walk traverses the trees rooted at roots depth-first in display order.
func Walk(roots []*DocumentNode, visit Visit) {
	type frame struct {
		node  *DocumentNode
		depth int
	}

	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visit(f.node, f.depth) {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}

// Count returns the total number of nodes in the trees.
func Count(roots []*DocumentNode) int {
	total := 0
	Walk(roots, func(*DocumentNode, int) bool {
		total++
		return true
	})
	return total
}

// CountCreated returns how many nodes are marked created, and the total.
func CountCreated(roots []*DocumentNode) (created, total int) {
	Walk(roots, func(n *DocumentNode, _ int) bool {
		total++
		if n.Created {
			created++
		}
		return true
	})
	return created, total
}

// MaxDepth returns the depth of the deepest node, with roots at depth 1.
// Empty trees have depth 0.
func MaxDepth(roots []*DocumentNode) int {
	max := 0
	Walk(roots, func(_ *DocumentNode, depth int) bool {
		if depth+1 > max {
			max = depth + 1
		}
		return true
	})
	return max
}

// ResetUploadState clears all upload bookkeeping so the next run starts
// from scratch: remote ids, created flags, attachment details and error
// logs. Content and structure are untouched.
func ResetUploadState(roots []*DocumentNode) {
	Walk(roots, func(n *DocumentNode, _ int) bool {
		n.RemoteID = nil
		n.RemoteParentID = nil
		n.Created = false
		n.AttachmentDetails = nil
		n.Errors = nil
		return true
	})
}
