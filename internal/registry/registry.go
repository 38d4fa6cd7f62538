package registry

import (
	"sort"
	"sync"
)

// Registry tracks which connections watch which items. The zero value is not
// usable, use New.
type Registry struct {
	mu     sync.RWMutex
	byItem map[string]map[string]struct{} // key: itemID -> connection IDs
	byConn map[string]map[string]struct{} // key: connectionID -> item IDs
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		byItem: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join subscribes connID to itemID. It reports whether the subscription is new.
func (r *Registry) Join(connID, itemID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byItem[itemID][connID]; ok {
		return false
	}
	add(r.byItem, itemID, connID)
	add(r.byConn, connID, itemID)
	return true
}

// Leave removes one subscription. It reports whether anything was removed.
func (r *Registry) Leave(connID, itemID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byItem[itemID][connID]; !ok {
		return false
	}
	remove(r.byItem, itemID, connID)
	remove(r.byConn, connID, itemID)
	return true
}

// LeaveAll removes every subscription of connID and returns the items it watched
func (r *Registry) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.byConn[connID]
	delete(r.byConn, connID)
	for itemID := range items {
		remove(r.byItem, itemID, connID)
	}
	return sortedKeys(items)
}

// SubscribersOf returns the connections watching itemID, sorted
func (r *Registry) SubscribersOf(itemID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byItem[itemID])
}

// IsSubscribed reports whether connID watches itemID
func (r *Registry) IsSubscribed(connID, itemID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byItem[itemID][connID]
	return ok
}

// ItemsOf returns the items connID watches, sorted
func (r *Registry) ItemsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byConn[connID])
}

// Count returns the total number of subscriptions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conns := range r.byConn {
		n += len(conns)
	}
	return n
}

func add(index map[string]map[string]struct{}, key, member string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[member] = struct{}{}
}

func remove(index map[string]map[string]struct{}, key, member string) {
	set := index[key]
	delete(set, member)
	if len(set) == 0 {
		delete(index, key)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
