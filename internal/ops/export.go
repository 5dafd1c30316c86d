// Package ops holds operations on finished scan trees.
package ops

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sadopc/volscan/internal/model"
)

// Exports use the ncdu JSON dump layout: a directory is an array whose first
// element describes the directory and whose remaining elements are its
// children; a file is a bare object.
//
//	[1, 0, {"progname":"volscan",...},
//	  [{"name":"/mnt/data","mtime":...},
//	    [{"name":"sub"}, {"name":"b.txt","asize":20}],
//	    {"name":"a.txt","asize":10}]]

const (
	majorVersion = 1
	minorVersion = 0
	progName     = "volscan"
)

type header struct {
	Progname  string `json:"progname"`
	Progver   string `json:"progver"`
	Timestamp int64  `json:"timestamp"`
}

type entry struct {
	Name  string `json:"name"`
	Asize int64  `json:"asize,omitempty"`
	Mtime int64  `json:"mtime,omitempty"`
}

// stickyWriter remembers the first write error and drops later writes.
type stickyWriter struct {
	w   *bufio.Writer
	err error
}

func (s *stickyWriter) str(v string) {
	if s.err == nil {
		_, s.err = s.w.WriteString(v)
	}
}

func (s *stickyWriter) json(v any) {
	if s.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.err = err
		return
	}
	_, s.err = s.w.Write(data)
}

// Export writes the tree under root to w. A nil root is an error.
func Export(w io.Writer, root *model.Node, version string) error {
	if root == nil {
		return errors.New("export: empty tree")
	}
	if version == "" {
		version = "dev"
	}

	sw := &stickyWriter{w: bufio.NewWriterSize(w, 64*1024)}
	sw.str(fmt.Sprintf("[%d, %d, ", majorVersion, minorVersion))
	sw.json(header{Progname: progName, Progver: version, Timestamp: time.Now().Unix()})
	sw.str(",\n")
	writeNode(sw, root)
	sw.str("\n]\n")
	if sw.err != nil {
		return fmt.Errorf("export: %w", sw.err)
	}
	return sw.w.Flush()
}

func writeNode(sw *stickyWriter, n *model.Node) {
	e := entry{Name: n.Name}
	if !n.Mtime.IsZero() {
		e.Mtime = n.Mtime.Unix()
	}
	if n.Kind == model.KindFile {
		e.Asize = n.Size
		sw.json(e)
		return
	}
	if n.Kind == model.KindVolume {
		e.Name = n.Path
	}

	sw.str("[")
	sw.json(e)
	for _, c := range n.Children() {
		if sw.err != nil {
			return
		}
		sw.str(",\n")
		writeNode(sw, c)
	}
	sw.str("]")
}

// ExportFile writes the tree to path, or to stdout when path is "-". The
// file is written to a temporary sibling and renamed into place, so a
// failed export never leaves a partial file.
func ExportFile(root *model.Node, path, version string) (retErr error) {
	if path == "-" {
		return Export(os.Stdout, root, version)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".volscan-export-*.tmp")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Export(tmp, root, version); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		if runtime.GOOS != "windows" {
			return err
		}
		// Windows cannot rename over an existing file.
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("replace %s: %w", path, err)
		}
		return os.Rename(tmp.Name(), path)
	}
	return nil
}
