package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/models"
)

// Thai column headers of the legacy product sheet. Mapped here, at the
// ingestion boundary, so the internal Product shape never varies by source.
const (
	headerName         = "รายการ"
	headerUnit         = "หน่วย"
	headerImage        = "รูป"
	headerMainCategory = "ประเภทหลัก"
	headerSubCategory  = "ประเภทย่อย"
	headerSortOrder    = "ลำดับ"
)

var sheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
var sheetGidPattern = regexp.MustCompile(`gid=([0-9]+)`)

// SheetSource loads products from a Google Sheets CSV export.
type SheetSource struct {
	exportURL string
	client    *http.Client
}

// NewSheetSource builds a source for the sheet behind the given share URL.
// The gid argument selects the tab when the URL does not carry one.
func NewSheetSource(sheetURL, gid string, timeout time.Duration) (*SheetSource, error) {
	exportURL, err := csvExportURL(sheetURL, gid)
	if err != nil {
		return nil, err
	}
	return &SheetSource{
		exportURL: exportURL,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// csvExportURL converts a Google Sheets share URL into its CSV export URL.
// A gid embedded in the URL wins over the explicit argument.
func csvExportURL(sheetURL, gid string) (string, error) {
	m := sheetIDPattern.FindStringSubmatch(sheetURL)
	if m == nil {
		return "", fmt.Errorf("invalid sheet URL: %s", sheetURL)
	}

	if g := sheetGidPattern.FindStringSubmatch(sheetURL); g != nil {
		gid = g[1]
	}
	if gid == "" {
		gid = "0"
	}

	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", m[1], gid), nil
}

// FetchProducts downloads and parses the sheet's CSV export
func (src *SheetSource) FetchProducts(ctx context.Context) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.exportURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := src.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet export returned status %d", resp.StatusCode)
	}

	return ParseProductCSV(resp.Body)
}

// ParseProductCSV parses a CSV export with the legacy Thai headers into
// typed products. Rows with an empty name cell are skipped.
func ParseProductCSV(r io.Reader) ([]models.Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV export")
	}

	col := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col[headerName]; !ok {
		return nil, fmt.Errorf("missing product name column %q", headerName)
	}

	cell := func(row []string, header string) string {
		i, ok := col[header]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	products := make([]models.Product, 0, len(records)-1)
	for n, row := range records[1:] {
		name := cell(row, headerName)
		if name == "" {
			continue
		}

		sortOrder, _ := strconv.Atoi(cell(row, headerSortOrder))
		if sortOrder == 0 {
			sortOrder = n + 1
		}

		products = append(products, models.Product{
			Name:         name,
			Unit:         cell(row, headerUnit),
			ImageURL:     NormalizeDriveURL(cell(row, headerImage)),
			MainCategory: cell(row, headerMainCategory),
			SubCategory:  cell(row, headerSubCategory),
			IsActive:     true,
			SortOrder:    sortOrder,
		})
	}
	return products, nil
}
