package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/meditatva/pharmacy-service/internal/ranking"
)

// Workbook sheet names.
const (
	StoresSheet = "Stores"
	OffersSheet = "Offers"
)

var (
	storeColumns = []string{"id", "name", "address", "phone", "latitude", "longitude", "distance_km", "rating", "hours"}
	offerColumns = []string{"store_id", "name", "price", "status", "quantity", "category", "generic_name", "manufacturer"}

	requiredStoreColumns = []string{"id", "name"}
	requiredOfferColumns = []string{"store_id", "name", "price", "status"}
)

// XLSXLoader imports a catalog workbook with a Stores sheet and an Offers sheet.
// Each sheet has a header row; columns are matched by header name, case-insensitively.
// Offers keep the row order of the Offers sheet within each store.
type XLSXLoader struct {
	Path string
}

// Name implements Loader.
func (l *XLSXLoader) Name() string { return SourceXLSX }

// Load implements Loader.
func (l *XLSXLoader) Load(ctx context.Context) ([]*ranking.Store, error) {
	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

// ReadXLSX imports a catalog workbook from r.
func ReadXLSX(r io.Reader) ([]*ranking.Store, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) ([]*ranking.Store, error) {
	storeRows, err := f.GetRows(StoresSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", StoresSheet, err)
	}
	offerRows, err := f.GetRows(OffersSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", OffersSheet, err)
	}

	stores, err := parseStoreRows(storeRows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*ranking.Store, len(stores))
	for _, s := range stores {
		byID[s.ID] = s
	}
	if err := parseOfferRows(offerRows, byID); err != nil {
		return nil, err
	}

	if err := Normalize(stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func parseStoreRows(rows [][]string) ([]*ranking.Store, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet is empty", StoresSheet)
	}
	idx, err := columnIndices(StoresSheet, rows[0], requiredStoreColumns)
	if err != nil {
		return nil, err
	}

	stores := make([]*ranking.Store, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		cell := cellReader{sheet: StoresSheet, row: row, rowNumber: i + 1, idx: idx}

		s := &ranking.Store{
			ID:      cell.text("id"),
			Name:    cell.text("name"),
			Address: cell.text("address"),
			Phone:   cell.text("phone"),
			Hours:   cell.text("hours"),
			Offers:  make([]ranking.MedicineOffer, 0),
		}
		s.Location.Latitude = cell.number("latitude")
		s.Location.Longitude = cell.number("longitude")
		s.DistanceKm = cell.number("distance_km")
		s.Rating = cell.number("rating")
		if cell.err != nil {
			return nil, cell.err
		}
		stores = append(stores, s)
	}
	return stores, nil
}

func parseOfferRows(rows [][]string, byID map[string]*ranking.Store) error {
	if len(rows) == 0 {
		return nil
	}
	idx, err := columnIndices(OffersSheet, rows[0], requiredOfferColumns)
	if err != nil {
		return err
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		cell := cellReader{sheet: OffersSheet, row: row, rowNumber: i + 1, idx: idx}

		storeID := cell.text("store_id")
		store, ok := byID[storeID]
		if !ok {
			return fmt.Errorf("%s row %d: unknown store %q", OffersSheet, i+1, storeID)
		}

		o := ranking.MedicineOffer{
			Name:         cell.text("name"),
			Price:        cell.number("price"),
			Status:       ranking.Availability(cell.text("status")),
			Quantity:     cell.integer("quantity"),
			Category:     cell.text("category"),
			GenericName:  cell.text("generic_name"),
			Manufacturer: cell.text("manufacturer"),
		}
		if cell.err != nil {
			return cell.err
		}
		store.Offers = append(store.Offers, o)
	}
	return nil
}

func columnIndices(sheet string, header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if key != "" {
			idx[key] = i
		}
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%s sheet is missing required column %q", sheet, col)
		}
	}
	return idx, nil
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellReader reads typed cells from one row and keeps the first conversion error.
type cellReader struct {
	sheet     string
	row       []string
	rowNumber int
	idx       map[string]int
	err       error
}

func (c *cellReader) text(col string) string {
	i, ok := c.idx[col]
	if !ok || i >= len(c.row) {
		return ""
	}
	return strings.TrimSpace(c.row[i])
}

func (c *cellReader) number(col string) float64 {
	raw := c.text(col)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("%s row %d: column %s: invalid number %q", c.sheet, c.rowNumber, col, raw)
	}
	return v
}

func (c *cellReader) integer(col string) int {
	v := c.number(col)
	return int(v)
}

// WriteXLSX writes stores as a catalog workbook that XLSXLoader can read back.
func WriteXLSX(w io.Writer, stores []*ranking.Store) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", StoresSheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", StoresSheet, err)
	}
	if _, err := f.NewSheet(OffersSheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", OffersSheet, err)
	}

	if err := setRow(f, StoresSheet, 1, toAny(storeColumns)); err != nil {
		return err
	}
	if err := setRow(f, OffersSheet, 1, toAny(offerColumns)); err != nil {
		return err
	}

	offerRow := 2
	for i, s := range stores {
		if err := setRow(f, StoresSheet, i+2, []any{
			s.ID, s.Name, s.Address, s.Phone, s.Location.Latitude, s.Location.Longitude, s.DistanceKm, s.Rating, s.Hours,
		}); err != nil {
			return err
		}
		for _, o := range s.Offers {
			if err := setRow(f, OffersSheet, offerRow, []any{
				s.ID, o.Name, o.Price, string(o.Status), o.Quantity, o.Category, o.GenericName, o.Manufacturer,
			}); err != nil {
				return err
			}
			offerRow++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}
