// Package resolver masks the upstream's schema drift. The same entity
// surfaces its primary key as `id` in one response and `<entity>ID`
// in another, and timestamps as `createAt` or `createdAt`, so joins
// go through this alias layer instead of touching fields directly.
package resolver

import (
	"strings"
	"time"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
)

// idAliases returns the identifier candidates in resolution order.
func idAliases(entity string) []string {
	return []string{
		"id",
		"_id",
		entity + "ID",
		entity + "Id",
		entity + "_id",
	}
}

// timestampAliases in resolution order. `createAt` is a live upstream
// typo, not a mistake here; responses carrying the typo never carry
// the corrected name too, so it resolves first.
var timestampAliases = []string{"createAt", "createdAt", "created_at"}

// ID extracts the canonical identifier of a record, trying each known
// alias for the entity. Returns an unresolvable-key error when no
// alias carries a non-empty value; callers exclude such records from
// joins rather than crash.
func ID(rec model.Raw, entity string) (string, error) {
	for _, alias := range idAliases(entity) {
		if rec.Has(alias) {
			if v := rec.Str(alias); v != "" {
				return v, nil
			}
		}
	}
	return "", errors.UnresolvableKey(entity, "identifier")
}

// ForeignKey extracts the identifier a child record holds for a parent
// entity. Unlike ID it never matches the bare `id` field, which is
// the child's own key.
func ForeignKey(rec model.Raw, parent string) (string, error) {
	for _, alias := range idAliases(parent)[2:] {
		if rec.Has(alias) {
			if v := rec.Str(alias); v != "" {
				return v, nil
			}
		}
	}
	// Some responses nest the parent as an object.
	if nested, ok := rec[parent].(map[string]any); ok {
		return ID(model.Raw(nested), parent)
	}
	return "", errors.UnresolvableKey(parent, "foreign key")
}

// Timestamp extracts the canonical creation timestamp as an RFC 3339
// string. An explicit field name may be passed for screens keyed on a
// domain date (scheduledAt, testDate); the alias list is the fallback.
func Timestamp(rec model.Raw, fields ...string) (string, error) {
	candidates := append(fields, timestampAliases...)
	for _, alias := range candidates {
		if !rec.Has(alias) {
			continue
		}
		if v := rec.Str(alias); v != "" {
			return normalizeTimestamp(v), nil
		}
	}
	return "", errors.UnresolvableKey("record", "timestamp")
}

// IsUnresolvable reports whether err is the data-quality error this
// package raises.
func IsUnresolvable(err error) bool {
	return errors.IsCode(err, errors.ErrUnresolvableKey)
}

func normalizeTimestamp(v string) string {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	// Day-first display dates pass through untouched; the query
	// engine parses them with an explicit order.
	return strings.TrimSpace(v)
}
