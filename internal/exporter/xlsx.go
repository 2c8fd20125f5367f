package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fnopulse/internal/dataprocessing"
	"fnopulse/pkg/contracts/domain"
)

const crore = 1e7

type xlsxColumn struct {
	title string
	value func(rank int, r domain.MarketRecord) interface{}
}

type xlsxGroup struct {
	title   string
	columns []xlsxColumn
}

func ratioCell(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func int64Col(title string, f func(domain.MarketRecord) int64) xlsxColumn {
	return xlsxColumn{title, func(_ int, r domain.MarketRecord) interface{} { return f(r) }}
}

func croreCol(title string, f func(domain.MarketRecord) float64) xlsxColumn {
	return xlsxColumn{title, func(_ int, r domain.MarketRecord) interface{} { return f(r) / crore }}
}

func ratioCol(title string, f func(domain.MarketRecord) *float64) xlsxColumn {
	return xlsxColumn{title, func(_ int, r domain.MarketRecord) interface{} { return ratioCell(f(r)) }}
}

// snapshotGroups mirrors the dashboard table column groups.
var snapshotGroups = []xlsxGroup{
	{"", []xlsxColumn{
		{"#", func(rank int, _ domain.MarketRecord) interface{} { return rank }},
		{"Symbol", func(_ int, r domain.MarketRecord) interface{} { return r.Symbol }},
	}},
	{"Volume", []xlsxColumn{
		int64Col("CE", func(r domain.MarketRecord) int64 { return r.CEVolume }),
		int64Col("PE", func(r domain.MarketRecord) int64 { return r.PEVolume }),
	}},
	{"Open Interest", []xlsxColumn{
		int64Col("CE", func(r domain.MarketRecord) int64 { return r.CEOpenInterest }),
		int64Col("PE", func(r domain.MarketRecord) int64 { return r.PEOpenInterest }),
	}},
	{"OI Change", []xlsxColumn{
		int64Col("CE", func(r domain.MarketRecord) int64 { return r.CEOIChange }),
		int64Col("PE", func(r domain.MarketRecord) int64 { return r.PEOIChange }),
	}},
	{"Turnover (Cr)", []xlsxColumn{
		croreCol("CE", func(r domain.MarketRecord) float64 { return r.CETurnover }),
		croreCol("PE", func(r domain.MarketRecord) float64 { return r.PETurnover }),
	}},
	{"PCR", []xlsxColumn{
		ratioCol("OI", func(r domain.MarketRecord) *float64 { return r.PCROpenInterest }),
		ratioCol("Vol", func(r domain.MarketRecord) *float64 { return r.PCRVolume }),
	}},
	{"", []xlsxColumn{
		{"Sentiment", func(_ int, r domain.MarketRecord) interface{} {
			return string(dataprocessing.CompactSentimentOf(r.PCROpenInterest))
		}},
	}},
}

// SnapshotSheetName is the worksheet title for date.
func SnapshotSheetName(date string) string {
	return "Options " + date
}

// SnapshotXLSX writes one snapshot as a workbook with a two-row grouped
// header, in the order given. Unknown ratios are left blank.
func SnapshotXLSX(w io.Writer, date string, records []domain.MarketRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SnapshotSheetName(date)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	col := 1
	for _, group := range snapshotGroups {
		first := col
		for _, c := range group.columns {
			cell, _ := excelize.CoordinatesToCellName(col, 2)
			if err := f.SetCellValue(sheet, cell, c.title); err != nil {
				return err
			}
			col++
		}
		if group.title == "" {
			continue
		}
		start, _ := excelize.CoordinatesToCellName(first, 1)
		end, _ := excelize.CoordinatesToCellName(col-1, 1)
		if err := f.SetCellValue(sheet, start, group.title); err != nil {
			return err
		}
		if err := f.MergeCell(sheet, start, end); err != nil {
			return fmt.Errorf("failed to merge %s header: %w", group.title, err)
		}
	}

	lastCol, _ := excelize.CoordinatesToCellName(col-1, 2)
	if err := f.SetCellStyle(sheet, "A1", lastCol, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range records {
		row := i + 3
		col := 1
		for _, group := range snapshotGroups {
			for _, c := range group.columns {
				if v := c.value(i+1, r); v != nil {
					cell, _ := excelize.CoordinatesToCellName(col, row)
					if err := f.SetCellValue(sheet, cell, v); err != nil {
						return fmt.Errorf("failed to write row %d: %w", i, err)
					}
				}
				col++
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      2,
		TopLeftCell: "C3",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
