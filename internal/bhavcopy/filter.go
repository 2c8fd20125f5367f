package bhavcopy

import "strings"

var (
	udiffInstruments  = map[string]bool{"STO": true, "IDO": true}
	legacyInstruments = map[string]bool{"OPTSTK": true, "OPTIDX": true}
)

// FilterOptions keeps option contracts only. The UDiFF FinInstrmTp column
// is preferred, then the legacy INSTRUMENT column, then the first column
// whose values include both CE and PE. The returned string names the column
// used; it is empty when nothing matched and every row is returned.
func FilterOptions(t *Table) (*Table, string) {
	if col := t.FindColumn("FinInstrmTp"); col >= 0 {
		return t.Where(func(row []string) bool { return udiffInstruments[t.Cell(row, col)] }), t.Header[col]
	}
	if col := t.FindColumn("INSTRUMENT"); col >= 0 {
		return t.Where(func(row []string) bool { return legacyInstruments[t.Cell(row, col)] }), t.Header[col]
	}

	isOption := func(v string) bool { return v == "CE" || v == "PE" }
	for col := range t.Header {
		var ce, pe bool
		for _, row := range t.Rows {
			switch t.Cell(row, col) {
			case "CE":
				ce = true
			case "PE":
				pe = true
			}
			if ce && pe {
				break
			}
		}
		if ce && pe {
			return t.Where(func(row []string) bool { return isOption(t.Cell(row, col)) }), t.Header[col]
		}
	}
	return t, ""
}

// FilterSymbol keeps rows of one underlying, compared case-insensitively.
// The table is returned unchanged when it has no symbol column.
func FilterSymbol(t *Table, symbol string) *Table {
	col := t.FindColumn(symbolColumns...)
	if col < 0 || symbol == "" {
		return t
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return t.Where(func(row []string) bool { return strings.ToUpper(t.Cell(row, col)) == symbol })
}
