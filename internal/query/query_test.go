package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("clinicops", "query_test")

func newEngine() *Engine {
	return NewEngine(testMetrics)
}

func appointmentConfig() model.EntityConfig {
	return model.Screens()[model.EntityAppointment]
}

func row(id string, fields map[string]string) model.ViewRow {
	return model.ViewRow{ID: id, Entity: model.EntityAppointment, Fields: fields}
}

// Twelve appointments, half pending, as the consultant screen sees them.
func twelveAppointments() []model.ViewRow {
	rows := make([]model.ViewRow, 0, 12)
	for i := 1; i <= 12; i++ {
		status := "pending"
		if i%2 == 0 {
			status = "completed"
		}
		rows = append(rows, row(fmt.Sprintf("A-%d", i), map[string]string{
			"status":       status,
			"customerName": fmt.Sprintf("Patient %d", i),
			"scheduledAt":  fmt.Sprintf("%02d/06/2023", i),
		}))
	}
	return rows
}

func TestRun_StatusFilter(t *testing.T) {
	e := newEngine()
	state := model.NewQueryState(100)
	state.Filters["status"] = "pending"

	res := e.Run(twelveAppointments(), appointmentConfig(), state)
	assert.Equal(t, 6, res.TotalCount)
	for _, r := range res.PageRows {
		assert.Equal(t, "pending", r.Field("status"))
	}

	// Count is stable regardless of page size.
	for _, pageSize := range []int{1, 3, 5, 50} {
		state.PageSize = pageSize
		assert.Equal(t, 6, e.Run(twelveAppointments(), appointmentConfig(), state).TotalCount)
	}
}

func TestRun_FilterAllSentinelDisablesDimension(t *testing.T) {
	e := newEngine()
	state := model.NewQueryState(100)
	state.Filters["status"] = model.FilterAll

	res := e.Run(twelveAppointments(), appointmentConfig(), state)
	assert.Equal(t, 12, res.TotalCount)
}

func TestRun_TextSearch(t *testing.T) {
	e := newEngine()
	rows := []model.ViewRow{
		row("A-1", map[string]string{"customerName": "Maria Lindt", "customerPhone": "0441"}),
		row("A-2", map[string]string{"customerName": "Jonas Berg", "customerPhone": "0555"}),
		row("A-3", map[string]string{"customerName": "N/A", "consultantName": "Dr. Mariam"}),
	}

	state := model.NewQueryState(100)
	state.Search = "maria"
	res := e.Run(rows, appointmentConfig(), state)
	require.Len(t, res.PageRows, 2)
	assert.Equal(t, "A-1", res.PageRows[0].ID)
	assert.Equal(t, "A-3", res.PageRows[1].ID)

	state.Search = "0555"
	res = e.Run(rows, appointmentConfig(), state)
	require.Len(t, res.PageRows, 1)
	assert.Equal(t, "A-2", res.PageRows[0].ID)

	state.Search = ""
	assert.Equal(t, 3, e.Run(rows, appointmentConfig(), state).TotalCount)
}

func TestRun_DateRangeDayFirst(t *testing.T) {
	e := newEngine()
	rows := []model.ViewRow{
		row("IN", map[string]string{"scheduledAt": "15/06/2023"}),
		row("OUT", map[string]string{"scheduledAt": "25/06/2023"}),
		row("LOW", map[string]string{"scheduledAt": "01/06/2023"}),
		row("HIGH", map[string]string{"scheduledAt": "20/06/2023"}),
		row("BAD", map[string]string{"scheduledAt": "not-a-date"}),
		row("NONE", map[string]string{}),
	}

	state := model.NewQueryState(100)
	state.DateFrom = "01/06/2023"
	state.DateTo = "20/06/2023"

	res := e.Run(rows, appointmentConfig(), state)
	ids := make([]string, 0, len(res.PageRows))
	for _, r := range res.PageRows {
		ids = append(ids, r.ID)
	}
	// Bounds are inclusive; malformed dates are excluded, not thrown.
	assert.Equal(t, []string{"IN", "LOW", "HIGH"}, ids)
}

func TestRun_OneBoundUnsetDisablesRange(t *testing.T) {
	e := newEngine()
	rows := []model.ViewRow{
		row("A-1", map[string]string{"scheduledAt": "15/06/2023"}),
		row("A-2", map[string]string{"scheduledAt": "not-a-date"}),
	}
	state := model.NewQueryState(100)
	state.DateFrom = "01/06/2023"

	assert.Equal(t, 2, e.Run(rows, appointmentConfig(), state).TotalCount)
}

func TestRun_Conjunction(t *testing.T) {
	e := newEngine()
	mk := func(id, name, status, date string) model.ViewRow {
		return row(id, map[string]string{"customerName": name, "status": status, "scheduledAt": date})
	}
	rows := []model.ViewRow{
		mk("ALL", "Maria", "pending", "10/06/2023"), // satisfies all three
		mk("NOTEXT", "Jonas", "pending", "10/06/2023"),
		mk("NOSTATUS", "Maria", "completed", "10/06/2023"),
		mk("NODATE", "Maria", "pending", "10/07/2023"),
	}

	state := model.NewQueryState(100)
	state.Search = "maria"
	state.Filters["status"] = "pending"
	state.DateFrom = "01/06/2023"
	state.DateTo = "30/06/2023"

	res := e.Run(rows, appointmentConfig(), state)
	require.Len(t, res.PageRows, 1)
	assert.Equal(t, "ALL", res.PageRows[0].ID)
}

func TestRun_PaginationBoundaries(t *testing.T) {
	e := newEngine()
	rows := twelveAppointments()

	state := model.NewQueryState(5)
	res := e.Run(rows, appointmentConfig(), state)
	assert.Equal(t, 12, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.Len(t, res.PageRows, 5)

	state.Page = 3
	res = e.Run(rows, appointmentConfig(), state)
	assert.Len(t, res.PageRows, 2)

	// One page past the end: empty page, not an error.
	state.Page = 4
	res = e.Run(rows, appointmentConfig(), state)
	assert.Empty(t, res.PageRows)
	assert.Equal(t, 12, res.TotalCount)

	// Empty filtered set still reports one page.
	state = model.NewQueryState(5)
	state.Filters["status"] = "cancelled"
	res = e.Run(rows, appointmentConfig(), state)
	assert.Equal(t, 0, res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
	assert.Empty(t, res.PageRows)
}

func TestRun_Deterministic(t *testing.T) {
	e := newEngine()
	rows := twelveAppointments()
	state := model.NewQueryState(4)
	state.Filters["status"] = "pending"
	state.Page = 2

	first := e.Run(rows, appointmentConfig(), state)
	second := e.Run(rows, appointmentConfig(), state)
	assert.Equal(t, first, second)

	// Source insertion order is the tie-break.
	state.Page = 1
	ordered := e.Run(rows, appointmentConfig(), state)
	require.Len(t, ordered.PageRows, 4)
	assert.Equal(t, "A-1", ordered.PageRows[0].ID)
	assert.Equal(t, "A-3", ordered.PageRows[1].ID)
}

func TestParseDate_ExplicitOrder(t *testing.T) {
	d, err := ParseDate("05/06/2023")
	require.NoError(t, err)
	// Day first: the 5th of June, never the 6th of May.
	assert.Equal(t, 5, d.Day())
	assert.Equal(t, 6, int(d.Month()))

	_, err = ParseDate("2023-13-45")
	assert.Error(t, err)
}
