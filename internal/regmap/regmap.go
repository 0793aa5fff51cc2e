// Package regmap holds the validated register map and the decode logic
// that turns raw Modbus words into typed values.
package regmap

import (
	"fmt"
	"sort"
)

// Encoding selects how raw register words are interpreted.
type Encoding int

const (
	Float32 Encoding = iota
	ASCIIText
)

func (e Encoding) String() string {
	switch e {
	case Float32:
		return "float32"
	case ASCIIText:
		return "ascii"
	default:
		return "unknown"
	}
}

// Bank is the Modbus register class a measurement lives in.
type Bank int

const (
	Input Bank = iota
	Holding
)

func (b Bank) String() string {
	switch b {
	case Input:
		return "input"
	case Holding:
		return "holding"
	default:
		return "unknown"
	}
}

// RegisterSpec describes one named measurement. Address is the zero-based
// register offset: configured address = physical address - 1.
type RegisterSpec struct {
	Name     string
	Address  uint16
	Length   uint16
	Encoding Encoding
	Bank     Bank
}

// Validate checks that the length matches the encoding.
func (s RegisterSpec) Validate() error {
	switch s.Encoding {
	case Float32:
		if s.Length != 2 {
			return fmt.Errorf("register %q: float32 requires length 2, got %d", s.Name, s.Length)
		}
	case ASCIIText:
		if s.Length < 2 || s.Length%2 != 0 {
			return fmt.Errorf("register %q: ascii requires even length >= 2, got %d", s.Name, s.Length)
		}
	default:
		return fmt.Errorf("register %q: unknown encoding", s.Name)
	}
	return nil
}

// Map is an immutable lookup table of register specs keyed by measurement
// name. Built once at startup, read-only thereafter.
type Map struct {
	byName map[string]RegisterSpec
}

// NewMap validates every spec and builds the lookup table.
func NewMap(specs []RegisterSpec) (*Map, error) {
	byName := make(map[string]RegisterSpec, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("register with empty name")
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("register %q: duplicate name", s.Name)
		}
		byName[s.Name] = s
	}
	return &Map{byName: byName}, nil
}

// Lookup returns the spec for a measurement name.
func (m *Map) Lookup(name string) (RegisterSpec, bool) {
	s, ok := m.byName[name]
	return s, ok
}

// Bank returns all specs belonging to one register bank, sorted by name so
// polling order is stable.
func (m *Map) Bank(bank Bank) []RegisterSpec {
	var out []RegisterSpec
	for _, s := range m.byName {
		if s.Bank == bank {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all measurement names, sorted.
func (m *Map) Names() []string {
	out := make([]string, 0, len(m.byName))
	for name := range m.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of configured measurements.
func (m *Map) Len() int { return len(m.byName) }
