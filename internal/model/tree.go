package model

import (
	"errors"
	"sync"
	"time"
)

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// ErrFileHasNoChildren is returned when a child is added to a file node.
var ErrFileHasNoChildren = errors.New("model: file nodes cannot have children")

// Kind identifies what a Node represents.
type Kind uint8

const (
	KindVolume Kind = iota
	KindDirectory
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindVolume:
		return "volume"
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Node is one entry of a scanned volume: the volume root, a directory or a file.
//
// Children are append-only. While a scan is running the walker only ever
// appends, so a reader holding a Children snapshot always sees a structurally
// valid (possibly stale) subtree. Nothing is removed or mutated in place; a new
// scan replaces the whole tree.
type Node struct {
	Name      string    // Base name
	Path      string    // Full path, unique within a scan
	Kind      Kind
	Size      int64     // Bytes for files, 0 for directories and volumes
	FileCount int64     // Immediate files at visit time
	DirCount  int64     // Immediate subdirectories at visit time
	Mtime     time.Time // Last modification time
	Parent    *Node     // nil for the root

	mu       sync.RWMutex
	children []*Node
}

// IsDir reports whether the node can hold children.
func (n *Node) IsDir() bool { return n.Kind != KindFile }

// AddChild appends a child thread-safely.
func (n *Node) AddChild(child *Node) error {
	if n.Kind == KindFile {
		return ErrFileHasNoChildren
	}
	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()
	return nil
}

// Children returns a snapshot of children thread-safely.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	cp := make([]*Node, len(n.children))
	copy(cp, n.children)
	n.mu.RUnlock()
	return cp
}

// Len returns the number of children published so far.
func (n *Node) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.children)
}

// SubtreeSize sums file sizes below (and including) this node.
func (n *Node) SubtreeSize() int64 {
	if n.Kind == KindFile {
		return n.Size
	}
	var size int64
	for _, c := range n.Children() {
		size = saturatingAddInt64(size, c.SubtreeSize())
	}
	return size
}

// ItemCount returns the recursive number of descendants.
func (n *Node) ItemCount() int64 {
	var count int64
	for _, c := range n.Children() {
		count = saturatingAddInt64(count, c.ItemCount())
		count = saturatingAddInt64(count, 1)
	}
	return count
}

// Depth returns the number of ancestors.
func (n *Node) Depth() int {
	depth := 0
	for p := n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

func saturatingAddInt64(a, b int64) int64 {
	if b > 0 && a > maxInt64-b {
		return maxInt64
	}
	if b < 0 && a < minInt64-b {
		return minInt64
	}
	return a + b
}

// Tree holds the root of a scan. The walker publishes the root through
// SetRoot; observers read it concurrently through Root.
type Tree struct {
	mu   sync.RWMutex
	root *Node
}

// SetRoot publishes the root node.
func (t *Tree) SetRoot(root *Node) {
	t.mu.Lock()
	t.root = root
	t.mu.Unlock()
}

// Root returns the published root, or nil before the walker has visited it.
func (t *Tree) Root() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Reset drops the current tree.
func (t *Tree) Reset() {
	t.SetRoot(nil)
}
