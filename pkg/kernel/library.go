package kernel

import (
	"fmt"
	"slices"
	"sync"
)

// Factory is the cell-creation capability handed to element builders and
// the router. It is never a process-wide singleton.
type Factory interface {
	// Cell returns the cell registered under key, calling build to fill
	// a fresh cell on first use.
	Cell(key string, build func(c *Cell) error) (*Cell, error)
	// NewCell returns a fresh, uniquely named cell.
	NewCell(name string) *Cell
}

// Compile-time interface check.
var _ Factory = (*Library)(nil)

// Library is an append-only cell registry. It memoises cells by key so that
// identical element parameters resolve to the same cell.
type Library struct {
	mu      sync.Mutex
	cells   map[string]*Cell
	counter map[string]int
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		cells:   make(map[string]*Cell),
		counter: make(map[string]int),
	}
}

// Cell implements Factory.
func (l *Library) Cell(key string, build func(c *Cell) error) (*Cell, error) {
	if c := l.Lookup(key); c != nil {
		return c, nil
	}
	// build runs unlocked; it may request sub-cells from the same library.
	c := NewCell(key)
	if err := build(c); err != nil {
		return nil, fmt.Errorf("kernel: building cell %s: %w", key, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.cells[key]; ok {
		return existing, nil
	}
	l.cells[key] = c
	return c, nil
}

// NewCell implements Factory.
func (l *Library) NewCell(name string) *Cell {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.counter[name]
	l.counter[name] = n + 1
	unique := name
	if n > 0 {
		unique = fmt.Sprintf("%s$%d", name, n)
	}
	c := NewCell(unique)
	l.cells[unique] = c
	return c
}

// Lookup returns the cell registered under name, or nil.
func (l *Library) Lookup(name string) *Cell {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cells[name]
}

// Names returns all registered cell names, sorted.
func (l *Library) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.cells))
	for name := range l.cells {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CellCount returns the number of registered cells.
func (l *Library) CellCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cells)
}
