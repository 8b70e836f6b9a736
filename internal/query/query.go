// Package query filters, orders and paginates denormalized view rows.
// Everything here is a pure function of (rows, state): rows are never
// mutated and identical inputs yield identical output, with the source
// collection's insertion order as the tie-break.
package query

import (
	"strings"
	"time"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

const DefaultPageSize = 10

// Result is one page of the filtered set.
type Result struct {
	PageRows   []model.ViewRow `json:"rows"`
	TotalCount int             `json:"total_count"`
	TotalPages int             `json:"total_pages"`
}

type Engine struct {
	metrics *metrics.Metrics
}

func NewEngine(m *metrics.Metrics) *Engine {
	return &Engine{metrics: m}
}

// Run applies the text, categorical and date-range predicates as a
// conjunction, then paginates. A page past the end returns an empty
// page, never an error.
func (e *Engine) Run(rows []model.ViewRow, cfg model.EntityConfig, state model.QueryState) Result {
	start := time.Now()
	defer func() {
		e.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	filtered := make([]model.ViewRow, 0, len(rows))
	for _, row := range rows {
		if matches(row, cfg, state) {
			filtered = append(filtered, row)
		}
	}

	pageSize := state.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := state.Page
	if page <= 0 {
		page = 1
	}

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	low := (page - 1) * pageSize
	if low > len(filtered) {
		low = len(filtered)
	}
	high := low + pageSize
	if high > len(filtered) {
		high = len(filtered)
	}

	return Result{
		PageRows:   filtered[low:high],
		TotalCount: len(filtered),
		TotalPages: totalPages,
	}
}

func matches(row model.ViewRow, cfg model.EntityConfig, state model.QueryState) bool {
	return matchesText(row, cfg.SearchFields, state.Search) &&
		matchesFilters(row, cfg.FilterDims, state.Filters) &&
		matchesDateRange(row, cfg.DateField, state.DateFrom, state.DateTo)
}

// matchesText: the lowercase query must be a substring of at least one
// searchable field. An empty query matches everything.
func matchesText(row model.ViewRow, searchFields []string, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	for _, f := range searchFields {
		if strings.Contains(strings.ToLower(row.Field(f)), q) {
			return true
		}
	}
	return false
}

// matchesFilters: every active dimension must match exactly; the
// sentinel value "all" (or an unset dimension) disables it.
func matchesFilters(row model.ViewRow, dims []string, filters map[string]string) bool {
	for _, dim := range dims {
		want, ok := filters[dim]
		if !ok || want == "" || want == model.FilterAll {
			continue
		}
		if row.Field(dim) != want {
			return false
		}
	}
	return true
}

// matchesDateRange: active only when both bounds parse; the row's date
// must fall within [from, to] as inclusive calendar dates. A row with
// a malformed or missing date is excluded, not an error.
func matchesDateRange(row model.ViewRow, dateField, fromStr, toStr string) bool {
	if fromStr == "" || toStr == "" {
		return true
	}
	from, errFrom := ParseDate(fromStr)
	to, errTo := ParseDate(toStr)
	if errFrom != nil || errTo != nil {
		return true
	}

	value := row.Field(dateField)
	if value == "" {
		value = row.Field("createdAt")
	}
	d, err := ParseDate(value)
	if err != nil {
		return false
	}
	return sameOrAfter(d, from) && sameOrBefore(d, to)
}
