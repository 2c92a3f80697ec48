package core

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// MessageCore is a warning/fixup sink that deduplicates identical text so a
// multi-cylinder scan doesn't repeat the same notice for every track (spec
// §7 kind 3/4). The teacher has no such sink (it just fmt.Printf's); this
// keeps that plain-stdlib texture while adding the required dedup.
type MessageCore struct {
	mu   sync.Mutex
	seen map[string]bool
	out  io.Writer
}

// NewMessageCore creates a sink writing to w (os.Stderr if w is nil).
func NewMessageCore(w io.Writer) *MessageCore {
	if w == nil {
		w = os.Stderr
	}
	return &MessageCore{seen: make(map[string]bool), out: w}
}

// Emit records and prints text under kind, unless an identical message was
// already emitted by this sink.
func (m *MessageCore) Emit(kind MessageKind, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := kind.String() + ": " + text
	if m.seen[key] {
		return
	}
	m.seen[key] = true
	fmt.Fprintf(m.out, "[%s] %s\n", kind, text)
}

// Warnf formats and emits a warning.
func (m *MessageCore) Warnf(format string, args ...any) {
	m.Emit(KindWarning, fmt.Sprintf(format, args...))
}

// Fixf formats and emits a fixup notice.
func (m *MessageCore) Fixf(format string, args ...any) {
	m.Emit(KindFixup, fmt.Sprintf(format, args...))
}
