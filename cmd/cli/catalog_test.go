package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditatva/pharmacy-service/internal/catalog"
	"github.com/meditatva/pharmacy-service/internal/ranking"
)

const northCatalog = `{"stores": [
  {"id": "apollo-andheri", "name": "Apollo Andheri", "distanceKm": 1.2, "rating": 4.6,
   "offers": [{"name": "Paracetamol 500mg", "price": 22, "status": "in stock", "quantity": 140}]},
  {"id": "medplus-bandra", "name": "MedPlus Bandra", "distanceKm": 3.8, "rating": 4.3,
   "offers": [{"name": "Omeprazole 20mg", "price": 58, "status": "Low Stock", "quantity": 4}]}
]}`

const southCatalog = `{"stores": [
  {"id": "wellness-dadar", "name": "Wellness Dadar", "distanceKm": 6.1, "rating": 3.9,
   "offers": [{"name": "Insulin Glargine", "price": 640, "status": "In Stock", "quantity": 3}]}
]}`

const clashingCatalog = `{"stores": [
  {"id": "apollo-andheri", "name": "Apollo Andheri (copy)", "distanceKm": 1.0, "rating": 4.0, "offers": []}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func storeIDs(stores []*ranking.Store) []string {
	out := make([]string, len(stores))
	for i, s := range stores {
		out[i] = s.ID
	}
	return out
}

func TestReadCatalogFilesMergesInArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	north := writeFile(t, dir, "north.json", northCatalog)
	south := writeFile(t, dir, "south.json", southCatalog)

	stores, err := readCatalogFiles(context.Background(), []string{south, north})
	require.NoError(t, err)

	assert.Equal(t, []string{"wellness-dadar", "apollo-andheri", "medplus-bandra"}, storeIDs(stores))
	assert.Equal(t, ranking.InStock, stores[1].Offers[0].Status, "availability is normalized")
}

func TestReadCatalogFilesRejectsDuplicateIDsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	north := writeFile(t, dir, "north.json", northCatalog)
	clash := writeFile(t, dir, "clash.json", clashingCatalog)

	_, err := readCatalogFiles(context.Background(), []string{north, clash})
	require.Error(t, err)

	var invalid catalog.ErrInvalidCatalog
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "apollo-andheri", invalid.Store)
	assert.Contains(t, invalid.Reason, "duplicate")
}

func TestReadCatalogFilesErrors(t *testing.T) {
	dir := t.TempDir()
	north := writeFile(t, dir, "north.json", northCatalog)

	tests := []struct {
		name  string
		paths []string
		msg   string
	}{
		{"unsupported type", []string{north, writeFile(t, dir, "stores.csv", "id,name\n")}, "unsupported file type"},
		{"missing file", []string{north, filepath.Join(dir, "missing.json")}, "missing.json"},
		{"invalid document", []string{writeFile(t, dir, "bad.json", `{"stores": [{"id": ""}]}`)}, "missing id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCatalogFiles(context.Background(), tt.paths)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestWriteCatalogFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	stores, err := readCatalogFiles(context.Background(), []string{writeFile(t, dir, "north.json", northCatalog)})
	require.NoError(t, err)

	for _, name := range []string{"out.json", "out.yaml", "out.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, writeCatalogFile(path, stores))

			reread, err := readCatalogFiles(context.Background(), []string{path})
			require.NoError(t, err)
			assert.Equal(t, storeIDs(stores), storeIDs(reread))
			assert.Equal(t, catalog.CountOffers(stores), catalog.CountOffers(reread))
		})
	}
}

func TestWriteCatalogFileUnsupportedTypeCreatesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")

	err := writeCatalogFile(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output type")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is left behind")
}
