package model

// Flatten returns every node of the tree in pre-order: a node, then each
// child's subtree in publication order. It reads Children snapshots, so it is
// safe to call while a walker is still appending. Each call builds a new slice.
func Flatten(root *Node) []*Node {
	if root == nil {
		return nil
	}

	// Stack of pending sibling lists; the last entry is the list being drained.
	var out []*Node
	stack := [][]*Node{{root}}
	for len(stack) > 0 {
		top := len(stack) - 1
		if len(stack[top]) == 0 {
			stack = stack[:top]
			continue
		}
		n := stack[top][0]
		stack[top] = stack[top][1:]

		out = append(out, n)
		if n.IsDir() {
			if children := n.Children(); len(children) > 0 {
				stack = append(stack, children)
			}
		}
	}
	return out
}
