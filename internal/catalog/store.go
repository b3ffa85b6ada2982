// Package catalog holds the read-only property store. Source records are
// validated and normalized once at load time; every read after that is
// infallible.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"homekeys/server/internal/models"
)

//go:embed data/properties.json
var bundled []byte

var (
	ErrDuplicateID = errors.New("duplicate property id")
	ErrMissingID   = errors.New("property id is empty")
)

// Sort options for Query
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// Store is an ordered, immutable set of properties
type Store struct {
	properties []models.Property
	index      map[string]int
}

// Bundled returns the catalog document compiled into the binary
func Bundled() []byte {
	return bundled
}

// Empty returns a store with no properties
func Empty() *Store {
	return &Store{index: map[string]int{}}
}

// New builds a store from already canonical records, keeping their order
func New(properties []models.Property) (*Store, error) {
	s := &Store{
		properties: make([]models.Property, 0, len(properties)),
		index:      make(map[string]int, len(properties)),
	}
	for _, p := range properties {
		if p.ID == "" {
			return nil, ErrMissingID
		}
		if _, exists := s.index[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		s.index[p.ID] = len(s.properties)
		s.properties = append(s.properties, p)
	}
	return s, nil
}

// Load validates and normalizes a catalog document
func Load(data []byte) (*Store, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var doc rawCatalog
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	properties := make([]models.Property, 0, len(doc.Properties))
	for _, raw := range doc.Properties {
		properties = append(properties, raw.normalize())
	}
	return New(properties)
}

// LoadFile reads and loads a catalog document from disk
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Load(data)
}

// LoadOrEmpty degrades to an empty store when the document is malformed
func LoadOrEmpty(data []byte, logger *logrus.Logger) *Store {
	s, err := Load(data)
	if err != nil {
		if logger != nil {
			logger.WithError(err).Error("Catalog is malformed, serving an empty store")
		}
		return Empty()
	}
	return s
}

// Len returns the number of properties
func (s *Store) Len() int {
	return len(s.properties)
}

// All returns every property in load order. The slice is a copy.
func (s *Store) All() []models.Property {
	out := make([]models.Property, len(s.properties))
	copy(out, s.properties)
	return out
}

// ByID returns the property with the given id, if any
func (s *Store) ByID(id string) (models.Property, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.Property{}, false
	}
	return s.properties[i], true
}

// IndexOf returns the position of id in load order, or -1
func (s *Store) IndexOf(id string) int {
	i, ok := s.index[id]
	if !ok {
		return -1
	}
	return i
}

// At returns the property at position i in load order
func (s *Store) At(i int) (models.Property, bool) {
	if i < 0 || i >= len(s.properties) {
		return models.Property{}, false
	}
	return s.properties[i], true
}

// Similar returns up to n other properties in load order
func (s *Store) Similar(id string, n int) []models.Property {
	out := make([]models.Property, 0, n)
	if n <= 0 {
		return out
	}
	for _, p := range s.properties {
		if p.ID == id {
			continue
		}
		out = append(out, p)
		if len(out) == n {
			break
		}
	}
	return out
}

// Query narrows and orders a listing. Zero values mean "no constraint".
type Query struct {
	Type     string `form:"type"`
	City     string `form:"city"`
	MinPrice int    `form:"min_price"`
	MaxPrice int    `form:"max_price"`
	MinBeds  int    `form:"min_beds"`
	MinBaths int    `form:"min_baths"`
	Sort     string `form:"sort"`
}

func (q Query) matches(p *models.Property) bool {
	if q.Type != "" && !strings.EqualFold(q.Type, p.Type) {
		return false
	}
	if q.City != "" && !strings.EqualFold(strings.TrimSpace(q.City), p.City) {
		return false
	}
	if q.MinPrice > 0 && p.Price < q.MinPrice {
		return false
	}
	if q.MaxPrice > 0 && p.Price > q.MaxPrice {
		return false
	}
	if q.MinBeds > 0 && p.Bedrooms < q.MinBeds {
		return false
	}
	if q.MinBaths > 0 && p.Bathrooms < q.MinBaths {
		return false
	}
	return true
}

// Filter returns the matching properties; the store itself is untouched
func (s *Store) Filter(q Query) []models.Property {
	out := make([]models.Property, 0, len(s.properties))
	for i := range s.properties {
		if q.matches(&s.properties[i]) {
			out = append(out, s.properties[i])
		}
	}

	switch q.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}
