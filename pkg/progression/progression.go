package progression

import (
	"fmt"
	"os"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LevelData describes one level.
type LevelData struct {
	// Symbol is the unique key of the level.
	Symbol string `yaml:"symbol" validate:"required"`

	// Scene is the scene the level loads.
	Scene string `yaml:"scene" validate:"required"`
}

// Catalog is the on-disk form of a level list.
type Catalog struct {
	Levels []LevelData `yaml:"levels" validate:"required,min=1,unique=Symbol,dive"`
}

// Store is an immutable ordered list of levels. It is safe for concurrent
// reads.
type Store struct {
	levels []LevelData
	index  map[string]int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New builds a store from an ordered level list. The list must be non-empty
// with unique, non-empty symbols and scenes.
func New(levels []LevelData) (*Store, error) {
	catalog := Catalog{Levels: levels}
	if err := validate.Struct(catalog); err != nil {
		return nil, fmt.Errorf("invalid level catalog: %w", err)
	}

	s := &Store{
		levels: append([]LevelData(nil), levels...),
		index:  make(map[string]int, len(levels)),
	}
	for i, l := range s.levels {
		s.index[l.Symbol] = i
	}
	return s, nil
}

// Load reads a YAML catalog from path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level catalog: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse level catalog %s: %w", path, err)
	}
	return New(catalog.Levels)
}

// Write stores levels as a YAML catalog at path.
func Write(path string, levels []LevelData) error {
	data, err := yaml.Marshal(Catalog{Levels: levels})
	if err != nil {
		return fmt.Errorf("failed to encode level catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write level catalog: %w", err)
	}
	return nil
}

// GetLevel returns the level with symbol. It panics if no such level
// exists; use TryGetLevel when the symbol comes from outside the program.
func (s *Store) GetLevel(symbol string) LevelData {
	l, ok := s.TryGetLevel(symbol)
	if !ok {
		panic(fmt.Sprintf("progression: no level with symbol %q", symbol))
	}
	return l
}

// TryGetLevel returns the level with symbol, if present.
func (s *Store) TryGetLevel(symbol string) (LevelData, bool) {
	i, ok := s.index[symbol]
	if !ok {
		return LevelData{}, false
	}
	return s.levels[i], true
}

// TryGetNextLevel returns the level after level in catalog order. It
// reports false for the last level and for levels not in the catalog.
func (s *Store) TryGetNextLevel(level LevelData) (LevelData, bool) {
	i, ok := s.index[level.Symbol]
	if !ok || i+1 >= len(s.levels) {
		return LevelData{}, false
	}
	return s.levels[i+1], true
}

// FirstLevel returns the first level in the catalog.
func (s *Store) FirstLevel() LevelData {
	return s.levels[0]
}

// Levels returns a copy of the catalog in order.
func (s *Store) Levels() []LevelData {
	return append([]LevelData(nil), s.levels...)
}

// Len returns the number of levels.
func (s *Store) Len() int {
	return len(s.levels)
}

// Suggest returns up to three known symbols closest to symbol by edit
// distance, nearest first.
func (s *Store) Suggest(symbol string) []string {
	type candidate struct {
		symbol   string
		distance int
	}

	candidates := make([]candidate, 0, len(s.levels))
	for _, l := range s.levels {
		d := levenshtein.ComputeDistance(symbol, l.Symbol)
		if d <= maxSuggestDistance(l.Symbol) {
			candidates = append(candidates, candidate{symbol: l.Symbol, distance: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	out := make([]string, 0, 3)
	for i := 0; i < len(candidates) && i < 3; i++ {
		out = append(out, candidates[i].symbol)
	}
	return out
}

func maxSuggestDistance(symbol string) int {
	if n := len(symbol) / 2; n > 2 {
		return n
	}
	return 2
}
