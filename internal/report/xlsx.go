package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet    = "Summary"
	ProductsSheet   = "Products"
	TaxonomiesSheet = "Taxonomies"
)

var productHeaders = []interface{}{
	"Title", "Slug", "Status", "Stage", "Game ID", "Assets Uploaded", "Assets Failed", "Unresolved", "Metadata Error", "Error",
}

var taxonomyHeaders = []interface{}{"Kind", "Seen", "Created", "Existing", "Failed"}

// WriteXLSX saves a batch report as a workbook with a summary sheet, one row
// per product and one row per taxonomy kind.
func WriteXLSX(r *service.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSummary(f, r); err != nil {
		return err
	}
	if err := writeProducts(f, r.Outcomes); err != nil {
		return err
	}
	if err := writeTaxonomies(f, r.Taxonomies); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *service.Report) error {
	params := make([]string, 0, len(r.Params))
	for k, v := range r.Params {
		params = append(params, k+"="+v)
	}
	sort.Strings(params)

	rows := [][]interface{}{
		{"Run ID", r.RunID},
		{"Status", string(r.Status)},
		{"Params", strings.Join(params, "&")},
		{"Started At", r.StartedAt.Format(time.RFC3339)},
		{"Finished At", r.FinishedAt.Format(time.RFC3339)},
		{"Products Fetched", r.ProductsFetched},
		{"Games Created", r.GamesCreated},
		{"Games Skipped", r.GamesSkipped},
		{"Games Failed", r.GamesFailed},
		{"Assets Uploaded", r.AssetsUploaded},
		{"Assets Failed", r.AssetsFailed},
		{"Error", r.Error},
	}
	return writeRows(f, SummarySheet, rows)
}

func writeProducts(f *excelize.File, outcomes []service.ProductOutcome) error {
	if _, err := f.NewSheet(ProductsSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", ProductsSheet, err)
	}

	rows := [][]interface{}{productHeaders}
	for _, o := range outcomes {
		unresolved := make([]string, 0, len(o.Unresolved))
		for _, ref := range o.Unresolved {
			unresolved = append(unresolved, fmt.Sprintf("%s:%s", ref.Kind, ref.Name))
		}
		rows = append(rows, []interface{}{
			o.Title, o.Slug, string(o.Status), string(o.Stage), o.GameID,
			o.AssetsUploaded, o.AssetsFailed, strings.Join(unresolved, ", "), o.MetadataError, o.Error,
		})
	}
	return writeRows(f, ProductsSheet, rows)
}

func writeTaxonomies(f *excelize.File, summary service.ReconcileSummary) error {
	if _, err := f.NewSheet(TaxonomiesSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", TaxonomiesSheet, err)
	}

	rows := [][]interface{}{taxonomyHeaders}
	for _, kind := range model.TaxonomyKinds {
		s := summary[kind]
		rows = append(rows, []interface{}{string(kind), s.Seen, s.Created, s.Existing, s.Failed})
	}
	return writeRows(f, TaxonomiesSheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
