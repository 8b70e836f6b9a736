package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("clinicops", "join_test")

func newEngine() *Engine {
	return NewEngine(logger.NewLogger(nil), testMetrics)
}

func appointmentConfig() model.EntityConfig {
	return model.Screens()[model.EntityAppointment]
}

func TestBuildLookup(t *testing.T) {
	e := newEngine()

	records := []model.Raw{
		{"id": "C-1", "name": "Ana"},
		{"customerID": "C-2", "name": "Bo"}, // alias key, still resolvable
		{"name": "no key at all"},           // excluded, not fatal
		{"id": "C-1", "name": "Ana again"},  // duplicate, first wins
	}

	lookup, dups := e.BuildLookup(records, "customer")
	require.Len(t, lookup, 2)
	assert.Equal(t, "Ana", lookup["C-1"].Str("name"))
	assert.Equal(t, "Bo", lookup["C-2"].Str("name"))
	assert.Equal(t, []string{"C-1"}, dups)
}

func TestRows_JoinCorrectness(t *testing.T) {
	e := newEngine()

	children := []model.Raw{
		{"id": "A-1", "code": "APT-001", "customerID": "C-1", "consultantID": "D-1", "status": "pending"},
		{"id": "A-2", "code": "APT-002", "customerID": "C-MISSING", "consultantID": "D-1", "status": "confirmed"},
		{"code": "APT-003", "customerID": "C-1"}, // no own id, row still shown
	}
	parents := map[string][]model.Raw{
		model.EntityCustomer: {
			{"id": "C-1", "name": "Ana", "phone": "111", "email": "ana@x.io"},
		},
		model.EntityConsultant: {
			{"consultantID": "D-1", "name": "Dr. Weber", "email": "weber@clinic.io"},
		},
	}

	rows, warnings := e.Rows(children, appointmentConfig(), parents)
	assert.Empty(t, warnings)
	require.Len(t, rows, 3, "no row is silently dropped")

	// Resolved parents: fields equal the parent's fields.
	assert.Equal(t, "Ana", rows[0].Field("customerName"))
	assert.Equal(t, "111", rows[0].Field("customerPhone"))
	assert.Equal(t, "Dr. Weber", rows[0].Field("consultantName"))

	// Missing customer degrades to sentinel, consultant still joins.
	assert.Equal(t, model.Sentinel, rows[1].Field("customerName"))
	assert.Equal(t, model.Sentinel, rows[1].Field("customerPhone"))
	assert.Equal(t, "Dr. Weber", rows[1].Field("consultantName"))

	// Unresolvable child id: row kept with empty id, joins intact.
	assert.Equal(t, "", rows[2].ID)
	assert.Equal(t, "Ana", rows[2].Field("customerName"))
}

func TestRows_SourceOrderPreserved(t *testing.T) {
	e := newEngine()
	children := []model.Raw{
		{"id": "A-3"}, {"id": "A-1"}, {"id": "A-2"},
	}
	rows, _ := e.Rows(children, appointmentConfig(), nil)
	require.Len(t, rows, 3)
	assert.Equal(t, "A-3", rows[0].ID)
	assert.Equal(t, "A-1", rows[1].ID)
	assert.Equal(t, "A-2", rows[2].ID)
}

func TestRows_DuplicateParentWarning(t *testing.T) {
	e := newEngine()
	cfg := model.Screens()[model.EntityLabTest]

	children := []model.Raw{
		{"id": "L-1", "treatmentID": "T-1", "testName": "CBC"},
	}
	parents := map[string][]model.Raw{
		model.EntityTreatment: {
			{"id": "T-1", "diagnosis": "first"},
			{"treatmentID": "T-1", "diagnosis": "second"},
		},
	}

	rows, warnings := e.Rows(children, cfg, parents)
	require.Len(t, rows, 1)
	// First occurrence wins deterministically; the duplicate surfaces
	// as a warning instead of a silently arbitrary pick.
	assert.Equal(t, "first", rows[0].Field("treatmentDiagnosis"))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "duplicate")
}

func TestRows_GenerationDoesNotAliasSource(t *testing.T) {
	e := newEngine()
	children := []model.Raw{{"id": "A-1", "status": "pending"}}
	rows, _ := e.Rows(children, appointmentConfig(), nil)

	rows[0].Raw["status"] = "mutated"
	assert.Equal(t, "pending", children[0].Str("status"), "view rows must not mutate source records")
}

func TestRows_CanonicalTimestamp(t *testing.T) {
	e := newEngine()
	cfg := model.Screens()[model.EntityTreatment]

	children := []model.Raw{
		{"id": "T-1", "createAt": "2023-06-15T10:00:00Z", "diagnosis": "flu"},
	}
	rows, _ := e.Rows(children, cfg, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "2023-06-15T10:00:00Z", rows[0].Field("createdAt"))
}
