// Package volume enumerates the storage volumes mounted on this machine.
package volume

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// Replaced in tests.
var (
	diskPartitions = disk.Partitions
	diskUsage      = disk.Usage
)

// Volume describes one mounted volume.
type Volume struct {
	// RootPath is where the volume is mounted, e.g. "/" or `C:\`.
	RootPath string
	// Label is the device or volume name.
	Label string
	// FSType is the filesystem type, e.g. "ext4" or "NTFS".
	FSType string
	// Ready reports whether the volume can be read right now.
	Ready bool
	// TotalSize is the capacity in bytes.
	TotalSize uint64
	// FreeSpace is the space available to the current user in bytes.
	FreeSpace uint64
}

// String returns a one-line description for logs.
func (v Volume) String() string {
	if v.Label == "" {
		return v.RootPath
	}
	return fmt.Sprintf("%s (%s)", v.RootPath, v.Label)
}

// Lister lists volumes.
type Lister interface {
	ListVolumes() ([]Volume, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func() ([]Volume, error)

// ListVolumes calls f.
func (f ListerFunc) ListVolumes() ([]Volume, error) { return f() }

// SystemLister lists the physical volumes of the host operating system.
type SystemLister struct{}

// ListVolumes returns every volume the OS reports, ready or not. A volume
// whose usage cannot be read is not ready.
func (SystemLister) ListVolumes() ([]Volume, error) {
	parts, err := diskPartitions(false)
	if err != nil && len(parts) == 0 {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	seen := make(map[string]bool, len(parts))
	vols := make([]Volume, 0, len(parts))
	for _, p := range parts {
		root := mountRoot(p.Mountpoint)
		if root == "" || seen[root] {
			continue
		}
		seen[root] = true

		v := Volume{RootPath: root, Label: p.Device, FSType: p.Fstype}
		if u, err := diskUsage(root); err == nil && u.Total > 0 {
			v.Ready = true
			v.TotalSize = u.Total
			v.FreeSpace = u.Free
		}
		vols = append(vols, v)
	}
	return vols, nil
}

// mountRoot turns a bare drive such as "C:" into its root directory.
func mountRoot(mountpoint string) string {
	if mountpoint != "" && filepath.VolumeName(mountpoint) == mountpoint {
		return mountpoint + string(filepath.Separator)
	}
	return mountpoint
}

// ReadyOnly returns the volumes that are ready, preserving order.
func ReadyOnly(vols []Volume) []Volume {
	out := make([]Volume, 0, len(vols))
	for _, v := range vols {
		if v.Ready {
			out = append(out, v)
		}
	}
	return out
}

// ForPath returns a ready volume rooted at dir. Its label, filesystem type
// and space come from the volume in vols with the longest root containing
// dir, when there is one.
func ForPath(vols []Volume, dir string) Volume {
	out := Volume{RootPath: dir, Label: dir, Ready: true}
	best := -1
	for _, v := range vols {
		if !contains(v.RootPath, dir) || len(v.RootPath) <= best {
			continue
		}
		best = len(v.RootPath)
		out.FSType = v.FSType
		out.TotalSize = v.TotalSize
		out.FreeSpace = v.FreeSpace
		if v.Label != "" {
			out.Label = v.Label
		}
	}
	return out
}

// contains reports whether path is root or lies below it.
func contains(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
