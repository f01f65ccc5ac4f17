package larder

import "strings"

// IncludeMap is an ordered tree of relation names to load eagerly. The zero
// value is an empty map.
type IncludeMap struct {
	keys     []string
	children map[string]*IncludeMap
}

// ParseIncludes builds an IncludeMap from dotted paths such as
// "address.person". Shared prefixes merge into one branch.
func ParseIncludes(paths ...string) *IncludeMap {
	root := &IncludeMap{}
	for _, p := range paths {
		node := root
		for _, name := range strings.Split(p, ".") {
			if name == "" {
				continue
			}
			node = node.add(name)
		}
	}
	return root
}

// Keys returns the relation names at this level in insertion order.
func (m *IncludeMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Has reports whether name is included at this level.
func (m *IncludeMap) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.children[name]
	return ok
}

// Child returns the subtree under name, or nil when name is not included.
func (m *IncludeMap) Child(name string) *IncludeMap {
	if m == nil {
		return nil
	}
	return m.children[name]
}

// Len returns the number of relations at this level.
func (m *IncludeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// add returns the child for name, creating it when missing.
func (m *IncludeMap) add(name string) *IncludeMap {
	if c, ok := m.children[name]; ok {
		return c
	}
	if m.children == nil {
		m.children = make(map[string]*IncludeMap)
	}
	c := &IncludeMap{}
	m.keys = append(m.keys, name)
	m.children[name] = c
	return c
}

// walk follows path from m and returns the node it ends at.
func (m *IncludeMap) walk(path []string) (*IncludeMap, bool) {
	node := m
	for _, name := range path {
		next := node.Child(name)
		if next == nil {
			return nil, false
		}
		node = next
	}
	return node, true
}

// String renders the map as comma-separated dotted paths.
func (m *IncludeMap) String() string {
	var paths []string
	var visit func(node *IncludeMap, prefix string)
	visit = func(node *IncludeMap, prefix string) {
		for _, k := range node.keys {
			p := prefix + k
			child := node.children[k]
			if child.Len() == 0 {
				paths = append(paths, p)
				continue
			}
			visit(child, p+".")
		}
	}
	if m != nil {
		visit(m, "")
	}
	return strings.Join(paths, ",")
}

// merge adds every path of other below m.
func (m *IncludeMap) merge(other *IncludeMap) {
	for _, k := range other.Keys() {
		m.add(k).merge(other.Child(k))
	}
}
