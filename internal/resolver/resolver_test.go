package resolver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-ops/internal/model"
)

func TestID_AliasPermutations(t *testing.T) {
	aliases := []string{"id", "_id", "treatmentID", "treatmentId", "treatment_id"}

	// Any single present alias must resolve.
	for _, alias := range aliases {
		t.Run("alias_"+alias, func(t *testing.T) {
			rec := model.Raw{alias: "T-1", "diagnosis": "flu"}
			id, err := ID(rec, "treatment")
			require.NoError(t, err)
			assert.Equal(t, "T-1", id)
		})
	}

	// Every pair must resolve too, preferring the earlier alias.
	for i, first := range aliases {
		for _, second := range aliases[i+1:] {
			rec := model.Raw{first: "A", second: "B"}
			id, err := ID(rec, "treatment")
			require.NoError(t, err)
			assert.Equal(t, "A", id, "alias %s should win over %s", first, second)
		}
	}
}

func TestID_NumericIdentifier(t *testing.T) {
	rec := model.Raw{"treatmentID": float64(42)}
	id, err := ID(rec, "treatment")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestID_Unresolvable(t *testing.T) {
	cases := []model.Raw{
		{},
		{"name": "no id here"},
		{"id": nil},
		{"id": ""},
		{"customerID": "C-1"}, // wrong entity's key
	}
	for i, rec := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			_, err := ID(rec, "treatment")
			require.Error(t, err)
			assert.True(t, IsUnresolvable(err))
		})
	}
}

func TestForeignKey(t *testing.T) {
	t.Run("flat key", func(t *testing.T) {
		rec := model.Raw{"id": "A-1", "customerID": "C-9"}
		fk, err := ForeignKey(rec, "customer")
		require.NoError(t, err)
		assert.Equal(t, "C-9", fk)
	})

	t.Run("own id never matches", func(t *testing.T) {
		rec := model.Raw{"id": "A-1"}
		_, err := ForeignKey(rec, "customer")
		assert.True(t, IsUnresolvable(err))
	})

	t.Run("nested parent object", func(t *testing.T) {
		rec := model.Raw{"id": "A-1", "customer": map[string]any{"id": "C-3", "name": "Ana"}}
		fk, err := ForeignKey(rec, "customer")
		require.NoError(t, err)
		assert.Equal(t, "C-3", fk)
	})
}

func TestTimestamp(t *testing.T) {
	t.Run("createAt resolves first", func(t *testing.T) {
		rec := model.Raw{"createAt": "2023-06-15T10:00:00Z", "createdAt": "2020-01-01T00:00:00Z"}
		ts, err := Timestamp(rec)
		require.NoError(t, err)
		assert.Equal(t, "2023-06-15T10:00:00Z", ts)
	})

	t.Run("createAt typo accepted", func(t *testing.T) {
		rec := model.Raw{"createAt": "2023-06-15 08:30:00"}
		ts, err := Timestamp(rec)
		require.NoError(t, err)
		assert.Equal(t, "2023-06-15T08:30:00Z", ts)
	})

	t.Run("explicit field wins", func(t *testing.T) {
		rec := model.Raw{"scheduledAt": "2023-06-20", "createdAt": "2023-06-01"}
		ts, err := Timestamp(rec, "scheduledAt")
		require.NoError(t, err)
		assert.Equal(t, "2023-06-20T00:00:00Z", ts)
	})

	t.Run("day-first strings pass through", func(t *testing.T) {
		rec := model.Raw{"createdAt": "15/06/2023"}
		ts, err := Timestamp(rec)
		require.NoError(t, err)
		assert.Equal(t, "15/06/2023", ts)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Timestamp(model.Raw{"id": "x"})
		assert.True(t, IsUnresolvable(err))
	})
}
