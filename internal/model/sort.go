package model

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// SortField defines what to sort by.
type SortField int

const (
	SortByOrder SortField = iota // enumeration order, as published by the walker
	SortBySize
	SortByName
	SortByMtime
)

func (f SortField) String() string {
	switch f {
	case SortBySize:
		return "size"
	case SortByName:
		return "name"
	case SortByMtime:
		return "mtime"
	default:
		return "order"
	}
}

// SortOrder defines ascending or descending.
type SortOrder int

const (
	SortDesc SortOrder = iota
	SortAsc
)

// SortConfig holds sort preferences.
type SortConfig struct {
	Field SortField
	Order SortOrder
	// DirsFirst keeps directories before files regardless of sort.
	DirsFirst bool
}

// DefaultSort keeps the walker's order, which already lists directories first.
func DefaultSort() SortConfig {
	return SortConfig{
		Field:     SortByOrder,
		Order:     SortAsc,
		DirsFirst: true,
	}
}

// SortNodes sorts a slice of nodes in place according to config. Sizes come
// from sizes, which may be nil. Pass a Children snapshot, not a live slice.
func SortNodes(nodes []*Node, cfg SortConfig, sizes Sizes) {
	if cfg.Field == SortByOrder {
		if cfg.Order == SortDesc {
			for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
				nodes[i], nodes[j] = nodes[j], nodes[i]
			}
		}
		return
	}

	var bySize map[*Node]int64
	if cfg.Field == SortBySize {
		bySize = make(map[*Node]int64, len(nodes))
		for _, n := range nodes {
			bySize[n] = sizes.Of(n)
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]

		if cfg.DirsFirst {
			aDir, bDir := a.IsDir(), b.IsDir()
			if aDir != bDir {
				return aDir
			}
		}

		// Swapping keeps strict weak ordering for descending sorts.
		if cfg.Order == SortDesc {
			a, b = b, a
		}

		switch cfg.Field {
		case SortBySize:
			return bySize[a] < bySize[b]
		case SortByName:
			return natural.Less(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByMtime:
			return a.Mtime.Before(b.Mtime)
		default:
			return false
		}
	})
}
