package selectbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/query"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("clinicops", "selectbox_test")

func appointmentRow(id, customer, consultant string) model.ViewRow {
	return model.ViewRow{
		ID:     id,
		Entity: model.EntityAppointment,
		Fields: map[string]string{
			"code":           "APT-" + id,
			"customerName":   customer,
			"consultantName": consultant,
			"customerID":     "C-" + id,
			"consultantID":   "D-" + id,
		},
	}
}

func resolveAppointment(r model.ViewRow) map[string]string {
	return map[string]string{
		"appointmentID":  r.ID,
		"customerID":     r.Field("customerID"),
		"consultantID":   r.Field("consultantID"),
		"customerName":   r.Field("customerName"),
		"consultantName": r.Field("consultantName"),
	}
}

func newBox(t *testing.T) *Box {
	t.Helper()
	box := New(model.Screens()[model.EntityAppointment], query.NewEngine(testMetrics), resolveAppointment)
	err := box.SetCandidates("gen-1", []model.ViewRow{
		appointmentRow("1", "Maria Lindt", "Dr. Weber"),
		appointmentRow("2", "Jonas Berg", "Dr. Weber"),
		appointmentRow("3", "Maria Voss", "Dr. Patel"),
	})
	require.NoError(t, err)
	return box
}

func TestLifecycle(t *testing.T) {
	box := newBox(t)
	assert.Equal(t, StateClosed, box.State())

	box.Focus()
	assert.Equal(t, StateOpen, box.State())

	got := box.Input("maria")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	resolved, err := box.Select("3")
	require.NoError(t, err)
	assert.Equal(t, StateSelected, box.State())
	assert.Equal(t, "3", resolved["appointmentID"])
	assert.Equal(t, "C-3", resolved["customerID"])
	assert.Equal(t, "D-3", resolved["consultantID"])
	assert.Equal(t, "Maria Voss", resolved["customerName"])

	box.Clear()
	assert.Equal(t, StateOpen, box.State())
	assert.Nil(t, box.Selection())
	assert.Empty(t, box.Resolved())
}

func TestInput_OpensClosedBox(t *testing.T) {
	box := newBox(t)
	box.Input("jonas")
	assert.Equal(t, StateOpen, box.State())
	require.Len(t, box.Candidates(), 1)
}

func TestSelect_UnknownCandidate(t *testing.T) {
	box := newBox(t)
	_, err := box.Select("nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestDismiss_KeepsSelection(t *testing.T) {
	box := newBox(t)
	box.Focus()
	_, err := box.Select("2")
	require.NoError(t, err)

	// Outside click while selected: nothing changes.
	box.Dismiss()
	assert.Equal(t, StateSelected, box.State())
	require.NotNil(t, box.Selection())
	assert.Equal(t, "2", box.Selection().ID)

	box.Clear()
	box.Dismiss()
	assert.Equal(t, StateClosed, box.State())
}

func TestReload_RecomputesFilteredView(t *testing.T) {
	box := newBox(t)
	box.Input("maria")
	require.Len(t, box.Candidates(), 2)

	// Collection reloads while the dropdown is open.
	err := box.SetCandidates("gen-2", []model.ViewRow{
		appointmentRow("9", "Maria Neu", "Dr. Patel"),
	})
	require.NoError(t, err)

	got := box.Candidates()
	require.Len(t, got, 1)
	assert.Equal(t, "9", got[0].ID)
}

func TestReload_StaleSelectionReverts(t *testing.T) {
	box := newBox(t)
	_, err := box.Select("2")
	require.NoError(t, err)

	// The selected appointment disappears in the new generation.
	err = box.SetCandidates("gen-2", []model.ViewRow{
		appointmentRow("1", "Maria Lindt", "Dr. Weber"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStaleSelection))

	// Form reverts to cleared: no orphaned foreign keys survive.
	assert.Nil(t, box.Selection())
	assert.Empty(t, box.Resolved())
}

func TestReload_SurvivingSelectionRebinds(t *testing.T) {
	box := newBox(t)
	_, err := box.Select("2")
	require.NoError(t, err)

	err = box.SetCandidates("gen-2", []model.ViewRow{
		appointmentRow("2", "Jonas Berg-Updated", "Dr. Weber"),
	})
	require.NoError(t, err)

	require.NotNil(t, box.Selection())
	assert.Equal(t, "Jonas Berg-Updated", box.Resolved()["customerName"],
		"resolved fields must come from the new generation")
}
