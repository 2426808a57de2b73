package layout

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxDesigns is the number of label designs an object type can carry.
const MaxDesigns = 10

var (
	ErrUnknownObjectType = errors.New("layout: no label design for object type")
	ErrUnknownDesign     = errors.New("layout: unknown design number")
)

// Design is one numbered label design of an object type.
type Design struct {
	ObjectType string
	No         int
	Config     Config
}

// Set maps object types to their label designs. Design 1 is keyed by the bare
// object type ("device"), further designs by "device_2" up to "device_10".
type Set struct {
	designs map[string]Config
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{designs: make(map[string]Config)}
}

// Key returns the configuration key of design no of objectType.
func Key(objectType string, no int) string {
	if no <= 1 {
		return objectType
	}
	return objectType + "_" + strconv.Itoa(no)
}

// ParseKey splits "device_3" into ("device", 3). Keys without a design
// suffix are design 1.
func ParseKey(key string) (string, int) {
	if i := strings.LastIndexByte(key, '_'); i > 0 {
		if n, err := strconv.Atoi(key[i+1:]); err == nil && n >= 2 && n <= MaxDesigns {
			return key[:i], n
		}
	}
	return key, 1
}

// Put stores cfg under key.
func (s *Set) Put(key string, cfg Config) {
	s.designs[key] = cfg
}

// Get returns design no of objectType.
func (s *Set) Get(objectType string, no int) (Config, error) {
	if no < 1 || no > MaxDesigns {
		return Config{}, fmt.Errorf("%w: %d", ErrUnknownDesign, no)
	}
	if _, ok := s.designs[objectType]; !ok {
		return Config{}, fmt.Errorf("%w %q", ErrUnknownObjectType, objectType)
	}
	cfg, ok := s.designs[Key(objectType, no)]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s has no design %d", ErrUnknownDesign, objectType, no)
	}
	return cfg, nil
}

// Designs returns the designs of objectType in order. Numbering stops at the
// first missing design.
func (s *Set) Designs(objectType string) []Design {
	var out []Design
	for no := 1; no <= MaxDesigns; no++ {
		cfg, ok := s.designs[Key(objectType, no)]
		if !ok {
			break
		}
		out = append(out, Design{ObjectType: objectType, No: no, Config: cfg})
	}
	return out
}

// ObjectTypes lists the object types with at least one design, sorted.
func (s *Set) ObjectTypes() []string {
	var out []string
	for key := range s.designs {
		if t, no := ParseKey(key); no == 1 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks every design.
func (s *Set) Validate() error {
	for key, cfg := range s.designs {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// DefaultSet returns the stock designs for the inventory object types.
func DefaultSet() *Set {
	s := NewSet()
	with := func(place Placement, fields ...string) Config {
		c := DefaultConfig()
		c.Placement = place
		if fields != nil {
			c.TextFields = fields
		}
		return c
	}
	s.Put("device", with(PlaceRight, "name", "serial"))
	s.Put("rack", with(PlaceRight, "name"))
	s.Put("cable", with(PlaceLeft,
		"_termination_a_device",
		"termination_a",
		"_termination_b_device",
		"termination_b",
		"a_terminations.device",
		"a_terminations",
		"b_terminations.device",
		"b_terminations",
	))
	s.Put("location", with(PlaceLeft, "name"))
	s.Put("powerfeed", with(PlaceRight, "name"))
	s.Put("powerpanel", with(PlaceRight, "name"))
	s.Put("module", with(PlaceRight, "name", "serial"))
	return s
}
