package session

import (
	"strings"
	"time"

	"github.com/sadopc/volscan/internal/volume"
)

// Field is a bitmask naming the parts of State that changed.
type Field uint16

const (
	FieldBusy Field = 1 << iota
	FieldFiles
	FieldDirectories
	FieldCurrentPath
	FieldProgress
	FieldElapsed
	FieldErrors
	FieldTree

	FieldAll = FieldBusy | FieldFiles | FieldDirectories | FieldCurrentPath |
		FieldProgress | FieldElapsed | FieldErrors | FieldTree
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldBusy, "busy"},
	{FieldFiles, "files"},
	{FieldDirectories, "directories"},
	{FieldCurrentPath, "current_path"},
	{FieldProgress, "progress"},
	{FieldElapsed, "elapsed"},
	{FieldErrors, "errors"},
	{FieldTree, "tree"},
}

// Has reports whether every bit of g is set in f.
func (f Field) Has(g Field) bool { return f&g == g }

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range fieldNames {
		if f.Has(fn.f) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// State is a point-in-time view of a session.
type State struct {
	Files       int64
	Directories int64
	CurrentPath string
	// Progress is a heuristic percentage in [0, 100).
	Progress    float64
	Elapsed     time.Duration
	ElapsedText string
	Busy        bool
	// Errors counts entries skipped because they could not be read.
	Errors int64
	// Items is the length of the flat projection.
	Items int
}

// diff returns the fields that differ between a and b.
func diff(a, b State) Field {
	var f Field
	if a.Busy != b.Busy {
		f |= FieldBusy
	}
	if a.Files != b.Files {
		f |= FieldFiles
	}
	if a.Directories != b.Directories {
		f |= FieldDirectories
	}
	if a.CurrentPath != b.CurrentPath {
		f |= FieldCurrentPath
	}
	if a.Progress != b.Progress {
		f |= FieldProgress
	}
	if a.ElapsedText != b.ElapsedText {
		f |= FieldElapsed
	}
	if a.Errors != b.Errors {
		f |= FieldErrors
	}
	if a.Items != b.Items {
		f |= FieldTree
	}
	return f
}

// Event reports that part of a session's State changed.
type Event struct {
	Volume  volume.Volume
	Changed Field
	State   State
}

// Listener receives session events.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent calls f(ev).
func (f ListenerFunc) OnEvent(ev Event) { f(ev) }

// listeners is a registry with removable entries.
type listeners struct {
	next  int
	items map[int]Listener
	order []int
}

func (l *listeners) add(ln Listener) int {
	if l.items == nil {
		l.items = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.items[id] = ln
	l.order = append(l.order, id)
	return id
}

func (l *listeners) remove(id int) {
	if _, ok := l.items[id]; !ok {
		return
	}
	delete(l.items, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *listeners) snapshot() []Listener {
	out := make([]Listener, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.items[id])
	}
	return out
}
