package model

// Sentinel is the display value attached when a joined parent cannot
// be resolved. Rows with missing parents stay visible and editable.
const Sentinel = "N/A"

// ViewRow is a denormalized projection of one child record with its
// resolved parent display fields. Rows are ephemeral: every reload
// produces a fresh generation and never mutates rows in place.
type ViewRow struct {
	ID     string            `json:"id"`
	Entity string            `json:"entity"`
	Fields map[string]string `json:"fields"`
	Raw    Raw               `json:"raw"`
}

// Field returns a display field, empty when absent.
func (v ViewRow) Field(name string) string {
	return v.Fields[name]
}

// QueryState drives one screen's filtering and pagination. Filtering
// and pagination are pure functions of (rows, state).
type QueryState struct {
	Search   string            `json:"search" form:"search"`
	Filters  map[string]string `json:"filters" form:"-"`
	DateFrom string            `json:"date_from" form:"date_from"`
	DateTo   string            `json:"date_to" form:"date_to"`
	Page     int               `json:"page" form:"page"`
	PageSize int               `json:"page_size" form:"page_size"`
}

func NewQueryState(pageSize int) QueryState {
	return QueryState{
		Filters:  make(map[string]string),
		Page:     1,
		PageSize: pageSize,
	}
}

// Reset restores every field to its default and returns to page 1.
func (s *QueryState) Reset() {
	s.Search = ""
	s.Filters = make(map[string]string)
	s.DateFrom = ""
	s.DateTo = ""
	s.Page = 1
}

// ResetPage rewinds to page 1. Callers do this whenever a filter
// changes so an out-of-range empty page is never shown.
func (s *QueryState) ResetPage() {
	s.Page = 1
}
