package catalog

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/meditatva/pharmacy-service/internal/ranking"
)

//go:embed seed/stores.json
var seedFS embed.FS

// Loader reads the full store catalog from a backing source.
type Loader interface {
	// Load returns every store in catalog order.
	Load(ctx context.Context) ([]*ranking.Store, error)

	// Name identifies the source in logs and metrics.
	Name() string
}

// Document is the on-disk catalog format shared by the JSON and YAML sources.
type Document struct {
	Stores []*ranking.Store `json:"stores" yaml:"stores"`
}

// NewLoader builds the loader selected by cfg. db is only used by the postgres source.
func NewLoader(cfg *Config, db *pgxpool.Pool) (Loader, error) {
	switch cfg.Source {
	case SourceEmbedded:
		return EmbeddedLoader{}, nil
	case SourceFile:
		return &FileLoader{Path: cfg.Path}, nil
	case SourceXLSX:
		return &XLSXLoader{Path: cfg.Path}, nil
	case SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres catalog source requires a database connection")
		}
		return NewPostgresLoader(db), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// EmbeddedLoader serves the seed catalog compiled into the binary.
type EmbeddedLoader struct{}

// Name implements Loader.
func (EmbeddedLoader) Name() string { return SourceEmbedded }

// Load implements Loader.
func (EmbeddedLoader) Load(ctx context.Context) ([]*ranking.Store, error) {
	data, err := seedFS.ReadFile("seed/stores.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed catalog: %w", err)
	}
	return DecodeJSON(data)
}

// FileLoader reads a JSON or YAML catalog document, chosen by file extension.
type FileLoader struct {
	Path string
}

// Name implements Loader.
func (l *FileLoader) Name() string { return SourceFile }

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context) ([]*ranking.Store, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".json":
		return DecodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported catalog file extension %q", filepath.Ext(l.Path))
	}
}

// DecodeJSON parses and normalizes a JSON catalog document.
func DecodeJSON(data []byte) ([]*ranking.Store, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog JSON: %w", err)
	}
	if err := Normalize(doc.Stores); err != nil {
		return nil, err
	}
	return doc.Stores, nil
}

// DecodeYAML parses and normalizes a YAML catalog document.
func DecodeYAML(data []byte) ([]*ranking.Store, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog YAML: %w", err)
	}
	if err := Normalize(doc.Stores); err != nil {
		return nil, err
	}
	return doc.Stores, nil
}

// Normalize canonicalizes availability spellings in place and rejects
// catalogs that ranking cannot work with: missing or duplicate store IDs,
// ratings outside 0-5, negative distances or prices, unnamed offers.
func Normalize(stores []*ranking.Store) error {
	seen := make(map[string]bool, len(stores))
	for i, store := range stores {
		if store == nil {
			return ErrInvalidCatalog{Store: fmt.Sprintf("#%d", i), Reason: "empty store entry"}
		}
		store.ID = strings.TrimSpace(store.ID)
		if store.ID == "" {
			return ErrInvalidCatalog{Store: fmt.Sprintf("#%d", i), Reason: "missing id"}
		}
		if seen[store.ID] {
			return ErrInvalidCatalog{Store: store.ID, Reason: "duplicate id"}
		}
		seen[store.ID] = true

		if store.Rating < 0 || store.Rating > 5 {
			return ErrInvalidCatalog{Store: store.ID, Reason: fmt.Sprintf("rating %.2f outside 0-5", store.Rating)}
		}
		if store.DistanceKm < 0 {
			return ErrInvalidCatalog{Store: store.ID, Reason: "negative distance"}
		}

		for j := range store.Offers {
			offer := &store.Offers[j]
			if strings.TrimSpace(offer.Name) == "" {
				return ErrInvalidCatalog{Store: store.ID, Reason: fmt.Sprintf("offer #%d has no name", j)}
			}
			if offer.Price < 0 {
				return ErrInvalidCatalog{Store: store.ID, Reason: fmt.Sprintf("offer %q has negative price", offer.Name)}
			}
			status, err := ranking.ParseAvailability(string(offer.Status))
			if err != nil {
				return ErrInvalidCatalog{Store: store.ID, Reason: fmt.Sprintf("offer %q: %v", offer.Name, err)}
			}
			offer.Status = status
		}
	}
	return nil
}

// ErrInvalidCatalog is returned when loaded catalog data fails validation.
type ErrInvalidCatalog struct {
	Store  string
	Reason string
}

func (e ErrInvalidCatalog) Error() string {
	return "invalid catalog store " + e.Store + ": " + e.Reason
}

// CountOffers returns the total number of offers across stores.
func CountOffers(stores []*ranking.Store) int {
	n := 0
	for _, s := range stores {
		n += len(s.Offers)
	}
	return n
}
