package bhavcopy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fnopulse/pkg/contracts/domain"
)

// Candidate header names, UDiFF first.
var (
	symbolColumns     = []string{"TckrSymb", "SYMBOL"}
	optionTypeColumns = []string{"OptnTp", "OPTION_TYP", "OPTION_TYPE"}
	oiColumns         = []string{"OpnIntrst", "OPEN_INT", "OI"}
	oiChangeColumns   = []string{"ChngInOpnIntrst", "CHG_IN_OI"}
	volumeColumns     = []string{"TtlTradgVol", "CONTRACTS", "VOLUME", "NO_OF_CONT"}
	turnoverColumns   = []string{"TtlTrfVal", "VAL_INLAKH", "TURNOVER"}
)

// legacyLakhColumn is reported in lakh rupees.
const legacyLakhColumn = "VAL_INLAKH"

var lakh = decimal.NewFromInt(100000)

// ErrMissingColumns is returned when the symbol or option type column
// cannot be found.
var ErrMissingColumns = errors.New("bhavcopy: required columns not found")

type sideTotals struct {
	contracts int64
	volume    decimal.Decimal
	oi        decimal.Decimal
	oiChange  decimal.Decimal
	turnover  decimal.Decimal
}

type symbolTotals struct {
	ce, pe sideTotals
}

type columns struct {
	symbol, optType, oi, oiChange, volume, turnover int
	turnoverScale                                   decimal.Decimal
}

func detectColumns(t *Table) (columns, error) {
	c := columns{
		symbol:        t.FindColumn(symbolColumns...),
		optType:       t.FindColumn(optionTypeColumns...),
		oi:            t.FindColumn(oiColumns...),
		oiChange:      t.FindColumn(oiChangeColumns...),
		volume:        t.FindColumn(volumeColumns...),
		turnover:      t.FindColumn(turnoverColumns...),
		turnoverScale: decimal.NewFromInt(1),
	}
	if c.symbol < 0 || c.optType < 0 {
		return c, fmt.Errorf("%w: have %s", ErrMissingColumns, strings.Join(t.Header, ", "))
	}
	if c.turnover >= 0 && strings.EqualFold(t.Header[c.turnover], legacyLakhColumn) {
		c.turnoverScale = lakh
	}
	return c, nil
}

// add sums a numeric cell. Cells that do not parse are skipped.
func add(sum *decimal.Decimal, t *Table, row []string, col int) {
	if col < 0 {
		return
	}
	v, err := decimal.NewFromString(t.Cell(row, col))
	if err != nil {
		return
	}
	*sum = sum.Add(v)
}

// ratio is pe/ce rounded to three places, nil when ce is not positive.
func ratio(pe, ce int64) *float64 {
	if ce <= 0 {
		return nil
	}
	f, _ := decimal.NewFromInt(pe).Div(decimal.NewFromInt(ce)).Round(3).Float64()
	return &f
}

// Summarize aggregates option contracts into one record per symbol, sorted
// by symbol. Every symbol present in the table gets a record even when it
// has no CE or PE rows. Contracts are row counts; volume, open interest and
// OI change are truncated to integers after summing.
func Summarize(t *Table, date string) ([]domain.MarketRecord, error) {
	c, err := detectColumns(t)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*symbolTotals)
	for _, row := range t.Rows {
		symbol := t.Cell(row, c.symbol)
		if symbol == "" {
			continue
		}
		st, ok := totals[symbol]
		if !ok {
			st = &symbolTotals{}
			totals[symbol] = st
		}

		var side *sideTotals
		switch strings.ToUpper(t.Cell(row, c.optType)) {
		case "CE":
			side = &st.ce
		case "PE":
			side = &st.pe
		default:
			continue
		}

		side.contracts++
		add(&side.volume, t, row, c.volume)
		add(&side.oi, t, row, c.oi)
		add(&side.oiChange, t, row, c.oiChange)
		add(&side.turnover, t, row, c.turnover)
	}

	symbols := make([]string, 0, len(totals))
	for s := range totals {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	records := make([]domain.MarketRecord, 0, len(symbols))
	for _, s := range symbols {
		st := totals[s]
		r := domain.MarketRecord{
			Date:           date,
			Symbol:         s,
			CEVolume:       st.ce.volume.IntPart(),
			PEVolume:       st.pe.volume.IntPart(),
			CEOpenInterest: st.ce.oi.IntPart(),
			PEOpenInterest: st.pe.oi.IntPart(),
			CEOIChange:     st.ce.oiChange.IntPart(),
			PEOIChange:     st.pe.oiChange.IntPart(),
			CETurnover:     st.ce.turnover.Mul(c.turnoverScale).InexactFloat64(),
			PETurnover:     st.pe.turnover.Mul(c.turnoverScale).InexactFloat64(),
			CEContracts:    st.ce.contracts,
			PEContracts:    st.pe.contracts,
		}
		r.PCROpenInterest = ratio(r.PEOpenInterest, r.CEOpenInterest)
		r.PCRVolume = ratio(r.PEVolume, r.CEVolume)
		records = append(records, r)
	}
	return records, nil
}
