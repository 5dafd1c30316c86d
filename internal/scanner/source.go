package scanner

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// LocalSource reads the local filesystem through package os.
// Entries use Lstat semantics, so symlinks are listed but never followed.
type LocalSource struct{}

// NewLocalSource creates a source over the host filesystem.
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

func (LocalSource) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

func (LocalSource) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (LocalSource) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// BillySource reads any go-billy filesystem, e.g. memfs in tests or an osfs
// chrooted at a mount point.
type BillySource struct {
	fs billy.Filesystem
}

// NewBillySource wraps a go-billy filesystem.
func NewBillySource(fsys billy.Filesystem) *BillySource {
	return &BillySource{fs: fsys}
}

func (b *BillySource) ReadDir(path string) ([]fs.DirEntry, error) {
	infos, err := b.fs.ReadDir(path)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

func (b *BillySource) Stat(path string) (fs.FileInfo, error) {
	return b.fs.Stat(path)
}

func (b *BillySource) Join(elem ...string) string {
	return b.fs.Join(elem...)
}
