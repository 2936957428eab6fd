package view

import (
	"math"

	"github.com/foxfirecodes/datadog-viewer/internal/catalog"
	"github.com/foxfirecodes/datadog-viewer/internal/record"
	"github.com/foxfirecodes/datadog-viewer/internal/state"
)

// Stats summarizes the catalog joined with the addressed flags.
type Stats struct {
	Total           int     `json:"total"`
	Addressed       int     `json:"addressed"`
	Unaddressed     int     `json:"unaddressed"`
	ProgressPercent float64 `json:"progress_percent"`
}

// Entry pairs a record with its addressed flag, looked up live at
// query time.
type Entry struct {
	record.Record
	Addressed bool `json:"addressed"`
}

// Page is one bounded, ordered slice of the catalog.
type Page struct {
	Records    []Entry `json:"records"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
	HasPrev    bool    `json:"has_prev"`
	HasNext    bool    `json:"has_next"`
}

// View computes aggregates over a catalog and state store pair. It
// holds references and reads both live, so results always reflect the
// latest load and the latest toggle.
type View struct {
	catalog *catalog.Catalog
	state   state.Store
}

func New(c *catalog.Catalog, s state.Store) *View {
	return &View{catalog: c, state: s}
}

// Stats counts the catalog against the current addressed flags.
// Progress is addressed/total as a percentage rounded to one decimal,
// 0.0 for an empty catalog.
func (v *View) Stats() Stats {
	records := v.catalog.All()
	addressed := 0
	for _, r := range records {
		if v.state.IsAddressed(r.ID) {
			addressed++
		}
	}
	total := len(records)
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(addressed)/float64(total)*1000) / 10
	}
	return Stats{
		Total:           total,
		Addressed:       addressed,
		Unaddressed:     total - addressed,
		ProgressPercent: pct,
	}
}

// PageOf returns the n-th page (1-indexed) of size records. Out-of-range
// page numbers are clamped into [1, total_pages]; an empty catalog
// yields page 1 of 1 with zero records. size below 1 is raised to 1.
func (v *View) PageOf(n, size int) Page {
	if size < 1 {
		size = 1
	}
	records := v.catalog.All()
	total := len(records)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if n < 1 {
		n = 1
	}
	if n > totalPages {
		n = totalPages
	}

	start := (n - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	entries := make([]Entry, 0, end-start)
	for _, r := range records[start:end] {
		entries = append(entries, Entry{Record: r, Addressed: v.state.IsAddressed(r.ID)})
	}
	return Page{
		Records:    entries,
		Page:       n,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    n > 1,
		HasNext:    n < totalPages,
	}
}

// Entry returns the full record for id joined with its addressed flag.
func (v *View) Entry(id string) (Entry, error) {
	rec, err := v.catalog.Get(id)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Record: rec, Addressed: v.state.IsAddressed(rec.ID)}, nil
}
