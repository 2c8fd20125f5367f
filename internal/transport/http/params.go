package http

import (
	"net/http"
	"strings"

	"fnopulse/internal/dataprocessing"
)

// DateQuery selects a trading date; empty or "latest" means the most recent.
type DateQuery struct {
	Date string `query:"date" validate:"omitempty,isodate|eq=latest"`
}

// TableParams are the query parameters of GET /table.
type TableParams struct {
	Date      string `query:"date" validate:"omitempty,isodate|eq=latest"`
	SortKey   string `query:"sort" validate:"omitempty,sortkey"`
	Direction string `query:"dir" validate:"omitempty,oneof=asc desc"`
	Search    string `query:"q" validate:"max=32"`
}

// SymbolParam is the {symbol} path segment.
type SymbolParam struct {
	Symbol string `query:"symbol" validate:"required,symbol"`
}

func dateQuery(r *http.Request) DateQuery {
	return DateQuery{Date: strings.TrimSpace(r.URL.Query().Get("date"))}
}

func tableParams(r *http.Request) TableParams {
	q := r.URL.Query()
	return TableParams{
		Date:      strings.TrimSpace(q.Get("date")),
		SortKey:   strings.TrimSpace(q.Get("sort")),
		Direction: strings.ToLower(strings.TrimSpace(q.Get("dir"))),
		Search:    strings.TrimSpace(q.Get("q")),
	}
}

// Query fills in the table defaults.
func (p TableParams) Query() dataprocessing.TableQuery {
	q := dataprocessing.TableQuery{
		SortKey:   p.SortKey,
		Direction: p.Direction,
		Search:    p.Search,
	}
	if q.SortKey == "" {
		q.SortKey = dataprocessing.DefaultSortKey
	}
	if q.Direction == "" {
		q.Direction = dataprocessing.SortDesc
	}
	return q
}
