package repository

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"phoneadvisor/internal/model"
)

//go:embed data/phones.json
var defaultCatalogJSON []byte

var phoneValidator = validator.New()

// ErrEmptyCatalog is returned when no valid phone survives loading
var ErrEmptyCatalog = errors.New("catalog has no valid phones")

// Catalog is the immutable in-memory phone list shared by every turn
type Catalog struct {
	phones []model.Phone
	byID   map[string]int
}

// NewCatalog validates records and builds the catalog.
// Invalid records are skipped with a warning; for duplicate ids the first record wins.
func NewCatalog(phones []model.Phone, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Catalog{
		phones: make([]model.Phone, 0, len(phones)),
		byID:   make(map[string]int, len(phones)),
	}

	for i, p := range phones {
		p.ID = strings.TrimSpace(p.ID)
		if err := phoneValidator.Struct(p); err != nil {
			log.Warn("skipping invalid catalog record", zap.Int("index", i), zap.String("id", p.ID), zap.Error(err))
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			log.Warn("skipping duplicate catalog id", zap.Int("index", i), zap.String("id", p.ID))
			continue
		}
		c.byID[p.ID] = len(c.phones)
		c.phones = append(c.phones, p)
	}

	if len(c.phones) == 0 {
		return nil, ErrEmptyCatalog
	}

	log.Info("catalog loaded", zap.Int("phones", len(c.phones)), zap.Int("skipped", len(phones)-len(c.phones)))
	return c, nil
}

// ParseCatalogJSON decodes a JSON array of phones and builds the catalog
func ParseCatalogJSON(data []byte, log *zap.Logger) (*Catalog, error) {
	var phones []model.Phone
	if err := json.Unmarshal(data, &phones); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewCatalog(phones, log)
}

// LoadCatalogFile reads a JSON catalog from disk
func LoadCatalogFile(path string, log *zap.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalogJSON(data, log)
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog(log *zap.Logger) (*Catalog, error) {
	return ParseCatalogJSON(defaultCatalogJSON, log)
}

// All returns every phone in load order. Callers must not modify the slice.
func (c *Catalog) All() []model.Phone {
	return c.phones
}

// Get looks up a phone by id
func (c *Catalog) Get(id string) (model.Phone, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Phone{}, false
	}
	return c.phones[i], true
}

// Len returns the number of phones
func (c *Catalog) Len() int {
	return len(c.phones)
}
