//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package keys issues surrogate keys for dimension tables. A Registry lives
// for one run; keys are not persisted across runs.
package keys

import (
	"errors"
	"sync"
)

// Key is a warehouse surrogate key.
type Key int64

// ErrNotFound is returned by Lookup for unknown or revoked business keys.
var ErrNotFound = errors.New("business key not found")

// Registry maps business keys to surrogate keys, one namespace per table.
type Registry struct {
	mu     sync.Mutex
	tables map[string]*Namespace
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Namespace)}
}

// Namespace returns the namespace of table, creating it on first use.
func (r *Registry) Namespace(table string) *Namespace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.tables[table]
	if !ok {
		ns = newNamespace(table)
		r.tables[table] = ns
	}
	return ns
}

// Assign returns the key of bk in table, issuing the next one on first
// sight. The bool is true when a new key was issued.
func (r *Registry) Assign(table, bk string) (Key, bool) {
	return r.Namespace(table).Assign(bk)
}

// Lookup returns the key of bk in table or ErrNotFound.
func (r *Registry) Lookup(table, bk string) (Key, error) {
	return r.Namespace(table).Lookup(bk)
}

// Namespace is the key space of a single table. Each namespace has its own
// lock so tables never contend.
type Namespace struct {
	table string

	mu      sync.RWMutex
	next    Key
	keys    map[string]Key
	revoked map[string]struct{}
}

func newNamespace(table string) *Namespace {
	return &Namespace{
		table:   table,
		next:    1,
		keys:    make(map[string]Key),
		revoked: make(map[string]struct{}),
	}
}

// Table returns the table name.
func (n *Namespace) Table() string {
	return n.table
}

// Assign returns the key of bk, issuing the next integer on first sight.
// Revoked keys are never reissued.
func (n *Namespace) Assign(bk string) (Key, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if k, ok := n.keys[bk]; ok {
		return k, false
	}
	k := n.next
	n.next++
	n.keys[bk] = k
	return k, true
}

// Pin registers a caller-chosen key for bk. The first registration wins;
// the bool reports whether this call registered it.
func (n *Namespace) Pin(bk string, k Key) (Key, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if existing, ok := n.keys[bk]; ok {
		return existing, false
	}
	n.keys[bk] = k
	if k >= n.next {
		n.next = k + 1
	}
	return k, true
}

// Lookup returns the key of bk or ErrNotFound.
func (n *Namespace) Lookup(bk string) (Key, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if _, gone := n.revoked[bk]; gone {
		return 0, ErrNotFound
	}
	k, ok := n.keys[bk]
	if !ok {
		return 0, ErrNotFound
	}
	return k, nil
}

// Revoke withdraws bk so later lookups fail. Its key stays burned.
func (n *Namespace) Revoke(bk string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.keys[bk]; ok {
		n.revoked[bk] = struct{}{}
	}
}

// Len returns the number of live business keys.
func (n *Namespace) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.keys) - len(n.revoked)
}
