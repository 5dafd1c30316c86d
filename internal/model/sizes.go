package model

// Sizes caches subtree sizes taken from one flat projection.
type Sizes map[*Node]int64

// SubtreeSizes totals every node of a pre-order projection in a single
// backwards pass. A directory's total covers only the nodes in flat.
func SubtreeSizes(flat []*Node) Sizes {
	sizes := make(Sizes, len(flat))
	for i := len(flat) - 1; i >= 0; i-- {
		n := flat[i]
		sizes[n] = saturatingAddInt64(sizes[n], n.Size)
		if n.Parent != nil {
			sizes[n.Parent] = saturatingAddInt64(sizes[n.Parent], sizes[n])
		}
	}
	return sizes
}

// Of returns the cached size of n. Nodes published after the projection
// was taken are summed on demand.
func (s Sizes) Of(n *Node) int64 {
	if size, ok := s[n]; ok {
		return size
	}
	return n.SubtreeSize()
}
