package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/sadopc/volscan/internal/model"
)

func names(nodes []*model.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newTestWalker(src Source) (*Walker, *Enumerator) {
	enum := NewEnumerator(src, WithLogger(discardLogger()))
	return NewWalker(enum, nil, WithLogger(discardLogger())), enum
}

func TestWalk_SmallTree(t *testing.T) {
	fsys := buildMemFS(t, map[string]int{
		"/root/a.txt":     10,
		"/root/sub/b.txt": 20,
	})
	w, _ := newTestWalker(NewBillySource(fsys))
	tree := &model.Tree{}

	root, err := w.Walk(context.Background(), tree, "/root")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if tree.Root() != root {
		t.Fatal("root was not published into the tree")
	}
	if root.Kind != model.KindVolume || root.Path != "/root" {
		t.Fatalf("unexpected root %+v", root)
	}

	c := w.Counters()
	if c.Files() != 2 || c.Dirs() != 1 {
		t.Fatalf("got files=%d dirs=%d, want 2 and 1", c.Files(), c.Dirs())
	}

	// Subdirectories are walked before the files of the same directory.
	got := names(model.Flatten(root))
	want := []string{"root", "sub", "b.txt", "a.txt"}
	if !equalStrings(got, want) {
		t.Fatalf("flat order = %v, want %v", got, want)
	}
	if root.SubtreeSize() != 30 {
		t.Fatalf("SubtreeSize = %d, want 30", root.SubtreeSize())
	}
}

func TestWalk_CountsMatchTree(t *testing.T) {
	fsys := buildMemFS(t, map[string]int{
		"/v/one.bin":         5,
		"/v/a/two.bin":       5,
		"/v/a/b/three.bin":   5,
		"/v/a/b/c/four.bin":  5,
		"/v/d/five.bin":      5,
		"/v/d/six.bin":       5,
		"/v/empty/":          0,
		"/v/empty/nested/":   0,
		"/v/a/b/c/seven.bin": 5,
	})
	w, _ := newTestWalker(NewBillySource(fsys))
	tree := &model.Tree{}

	root, err := w.Walk(context.Background(), tree, "/v")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var files, dirs, sumFiles, sumDirs int64
	for _, n := range model.Flatten(root) {
		switch n.Kind {
		case model.KindFile:
			files++
		case model.KindDirectory:
			dirs++
		}
		if n.IsDir() {
			sumFiles += n.FileCount
			sumDirs += n.DirCount
		}
	}

	c := w.Counters()
	if files != 7 || dirs != 6 {
		t.Fatalf("tree has files=%d dirs=%d, want 7 and 6", files, dirs)
	}
	if c.Files() != files || c.Dirs() != dirs {
		t.Fatalf("counters files=%d dirs=%d, tree files=%d dirs=%d", c.Files(), c.Dirs(), files, dirs)
	}
	if sumFiles != c.Files() || sumDirs != c.Dirs() {
		t.Fatalf("per-directory counts sum to %d/%d, totals are %d/%d", sumFiles, sumDirs, c.Files(), c.Dirs())
	}
	if root.ItemCount() != files+dirs {
		t.Fatalf("ItemCount = %d, want %d", root.ItemCount(), files+dirs)
	}
}

func TestWalk_CancelledBeforeStart(t *testing.T) {
	fsys := buildMemFS(t, map[string]int{"/root/a.txt": 1})
	w, _ := newTestWalker(NewBillySource(fsys))
	tree := &model.Tree{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root, err := w.Walk(ctx, tree, "/root")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if root != nil || tree.Root() != nil {
		t.Fatal("expected an empty tree")
	}
	if w.Counters().Files() != 0 || w.Counters().Dirs() != 0 {
		t.Fatal("expected zero counters")
	}
}

func TestWalk_CancelledMidScanKeepsConnectedPrefix(t *testing.T) {
	fsys := buildMemFS(t, map[string]int{
		"/root/d1/x.txt": 1,
		"/root/d2/y.txt": 1,
		"/root/d3/":      0,
		"/root/z.txt":    1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &faultSource{
		Source: NewBillySource(fsys),
		onRead: func(path string) {
			if path == "/root/d2" {
				cancel()
			}
		},
	}
	w, _ := newTestWalker(src)
	tree := &model.Tree{}

	_, err := w.Walk(ctx, tree, "/root")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	root := tree.Root()
	if root == nil {
		t.Fatal("expected a partial tree")
	}
	got := names(model.Flatten(root))
	want := []string{"root", "d1", "x.txt", "d2"}
	if !equalStrings(got, want) {
		t.Fatalf("partial tree = %v, want %v", got, want)
	}
	for _, n := range model.Flatten(root) {
		top := n
		for top.Parent != nil {
			top = top.Parent
		}
		if top != root {
			t.Fatalf("node %q is not connected to the root", n.Path)
		}
	}
}

func TestWalk_AbsorbsUnreadableSubtree(t *testing.T) {
	fsys := buildMemFS(t, map[string]int{
		"/root/ok/a.txt":     1,
		"/root/locked/b.txt": 1,
		"/root/c.txt":        1,
	})
	src := &faultSource{
		Source: NewBillySource(fsys),
		fail:   map[string]error{"/root/locked": fs.ErrPermission},
	}
	w, enum := newTestWalker(src)
	tree := &model.Tree{}

	root, err := w.Walk(context.Background(), tree, "/root")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if enum.Errors() != 1 {
		t.Fatalf("expected 1 absorbed error, got %d", enum.Errors())
	}

	var locked *model.Node
	for _, c := range root.Children() {
		if c.Name == "locked" {
			locked = c
		}
	}
	if locked == nil {
		t.Fatal("unreadable directory should still be listed")
	}
	if locked.Len() != 0 || locked.FileCount != 0 || locked.DirCount != 0 {
		t.Fatalf("unreadable directory should be empty, got %+v", locked)
	}
	if w.Counters().Files() != 2 {
		t.Fatalf("expected 2 files, got %d", w.Counters().Files())
	}
}

func TestWalk_UpdatesProgress(t *testing.T) {
	layout := map[string]int{}
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		layout["/root/"+d+"/f.txt"] = 1
	}
	fsys := buildMemFS(t, layout)

	var last string
	src := &faultSource{Source: NewBillySource(fsys)}
	w, _ := newTestWalker(src)
	src.onRead = func(string) {
		last = w.Counters().Snapshot().CurrentPath
	}

	if _, err := w.Walk(context.Background(), &model.Tree{}, "/root"); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if last != "/root/e" {
		t.Fatalf("CurrentPath before last listing = %q, want /root/e", last)
	}
	if est := w.Counters().Snapshot().Estimate; est <= 0 || est >= 100 {
		t.Fatalf("estimate %f out of (0, 100)", est)
	}
}

func TestWalk_LocalFilesystem(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), make([]byte, 20), 0o644); err != nil {
		t.Fatal(err)
	}

	w, _ := newTestWalker(NewLocalSource())
	tree := &model.Tree{}
	node, err := w.Walk(context.Background(), tree, root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	got := names(model.Flatten(node))[1:]
	want := []string{"sub", "b.txt", "a.txt"}
	if !equalStrings(got, want) {
		t.Fatalf("flat order = %v, want %v", got, want)
	}
	if node.SubtreeSize() != 30 {
		t.Fatalf("SubtreeSize = %d, want 30", node.SubtreeSize())
	}
	if node.Path != root {
		t.Fatalf("root path = %q, want %q", node.Path, root)
	}
}
