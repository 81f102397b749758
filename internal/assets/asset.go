package assets

import (
	"slices"
	"unicode/utf8"
)

// Asset is a single output file held in memory until the output stage writes it.
type Asset interface {
	Source() string
	Size() int
}

// RawSource is an asset produced by the bundler or another binary producer.
// Size reports bytes.
type RawSource []byte

func (r RawSource) Source() string { return string(r) }
func (r RawSource) Size() int      { return len(r) }

// StringSource is a text asset. Size reports characters.
type StringSource string

func (s StringSource) Source() string { return string(s) }
func (s StringSource) Size() int      { return utf8.RuneCountInString(string(s)) }

// OutputSet maps unique output names to assets, preserving insertion order.
// It is owned by a single Compilation and is not safe for concurrent use.
type OutputSet struct {
	names  []string
	assets map[string]Asset
}

func NewOutputSet() *OutputSet {
	return &OutputSet{assets: make(map[string]Asset)}
}

// Set adds or replaces the asset stored under name. A replaced asset keeps its position.
func (s *OutputSet) Set(name string, asset Asset) {
	if _, exists := s.assets[name]; !exists {
		s.names = append(s.names, name)
	}
	s.assets[name] = asset
}

func (s *OutputSet) Get(name string) (Asset, bool) {
	asset, ok := s.assets[name]
	return asset, ok
}

func (s *OutputSet) Has(name string) bool {
	_, ok := s.assets[name]
	return ok
}

// Delete removes name from the set, reporting whether it was present.
func (s *OutputSet) Delete(name string) bool {
	if _, ok := s.assets[name]; !ok {
		return false
	}
	delete(s.assets, name)
	if i := slices.Index(s.names, name); i != -1 {
		s.names = slices.Delete(s.names, i, i+1)
	}
	return true
}

// Names returns a snapshot of the asset names in insertion order.
func (s *OutputSet) Names() []string {
	return slices.Clone(s.names)
}

func (s *OutputSet) Len() int {
	return len(s.names)
}
