package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/meditatva/pharmacy-service/internal/catalog"
	"github.com/meditatva/pharmacy-service/internal/database"
	"github.com/meditatva/pharmacy-service/internal/ranking"
)

var (
	importOut string
	importDB  bool
	showOffer bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import catalog files into Postgres or a single catalog file",
	Long: `Read one or more catalog files (.xlsx workbooks, .json or .yaml documents),
validate them and merge them in argument order. Store IDs must be unique across
all inputs. The merged catalog replaces the Postgres catalog (--db) or is
written to a file whose extension selects the format (--out).`,
	Example: `  pharmacy import stores.xlsx --db
  pharmacy import north.yaml south.xlsx --out catalog.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List the stores in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runStores,
}

func init() {
	rootCmd.AddCommand(importCmd, storesCmd)

	importCmd.Flags().StringVar(&importOut, "out", "", "write the merged catalog to this .json, .yaml or .xlsx file")
	importCmd.Flags().BoolVar(&importDB, "db", false, "replace the Postgres catalog")
	importCmd.MarkFlagsOneRequired("out", "db")

	storesCmd.Flags().BoolVar(&showOffer, "offers", false, "list every offer")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	stores, err := readCatalogFiles(ctx, args)
	if err != nil {
		return err
	}
	logger.Info().
		Int("files", len(args)).
		Int("stores", len(stores)).
		Int("offers", catalog.CountOffers(stores)).
		Msg("Catalog files validated")

	if importOut != "" {
		if err := writeCatalogFile(importOut, stores); err != nil {
			return err
		}
		logger.Info().Str("path", importOut).Msg("Catalog written")
	}

	if importDB {
		if err := initDatabase(ctx); err != nil {
			return err
		}
		if err := catalog.ReplaceCatalog(ctx, database.Pool(), stores); err != nil {
			return err
		}
		logger.Info().Msg("Postgres catalog replaced")
	}

	fmt.Printf("Imported %d stores with %d offers\n", len(stores), catalog.CountOffers(stores))
	return nil
}

// readCatalogFiles loads every file concurrently and merges the stores in argument order.
func readCatalogFiles(ctx context.Context, paths []string) ([]*ranking.Store, error) {
	loaded := make([][]*ranking.Store, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			loader, err := loaderFor(path)
			if err != nil {
				return err
			}
			stores, err := loader.Load(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			loaded[i] = stores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*ranking.Store
	for _, stores := range loaded {
		merged = append(merged, stores...)
	}
	if err := catalog.Normalize(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func loaderFor(path string) (catalog.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return &catalog.XLSXLoader{Path: path}, nil
	case ".json", ".yaml", ".yml":
		return &catalog.FileLoader{Path: path}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported file type", path)
	}
}

// writeCatalogFile encodes stores in the format selected by the extension of
// path. Nothing is written when the extension is unsupported or encoding fails.
func writeCatalogFile(path string, stores []*ranking.Store) error {
	var buf bytes.Buffer
	var err error

	doc := catalog.Document{Stores: stores}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		err = catalog.WriteXLSX(&buf, stores)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	case ".json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	default:
		return fmt.Errorf("%s: unsupported output type", path)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func runStores(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cache, _, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cache.Close()

	stores, err := cache.Stores(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, stores)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDISTANCE\tRATING\tOFFERS")
	for _, s := range stores {
		fmt.Fprintf(w, "%s\t%s\t%.1f km\t%.1f\t%d\n", s.ID, s.Name, s.DistanceKm, s.Rating, len(s.Offers))
		if showOffer {
			for _, o := range s.Offers {
				fmt.Fprintf(w, "\t  %s\t%.2f\t%s\t%d\n", o.Name, o.Price, o.Status, o.Quantity)
			}
		}
	}
	return w.Flush()
}
