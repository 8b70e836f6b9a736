// Package join builds denormalized view rows from independently keyed
// collections. The backend has no joined endpoints, so the relational
// work happens here: hash lookups per parent collection, O(n + m),
// never nested loops.
package join

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/resolver"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

type Engine struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewEngine(log *logger.Logger, m *metrics.Metrics) *Engine {
	return &Engine{logger: log, metrics: m}
}

// BuildLookup maps resolved primary keys to records. Records without
// a resolvable key are excluded from the lookup (a data-quality error,
// not a programming error) and logged. When several records share a
// key the first in collection order wins and the duplicate is
// reported; the backend does not enforce uniqueness.
func (e *Engine) BuildLookup(records []model.Raw, entity string) (map[string]model.Raw, []string) {
	lookup := make(map[string]model.Raw, len(records))
	var duplicates []string

	for _, rec := range records {
		id, err := resolver.ID(rec, entity)
		if err != nil {
			e.logger.Warn("record excluded from lookup", "entity", entity, "reason", err.Error())
			continue
		}
		if _, exists := lookup[id]; exists {
			duplicates = append(duplicates, id)
			continue
		}
		lookup[id] = rec
	}
	return lookup, duplicates
}

// Rows joins each child record against the parent collections the
// config declares and returns one generation of view rows. A missing
// parent attaches sentinel display values instead of dropping the
// row: partial data stays visible and actionable.
func (e *Engine) Rows(children []model.Raw, cfg model.EntityConfig, parents map[string][]model.Raw) ([]model.ViewRow, []string) {
	start := time.Now()
	defer func() {
		e.metrics.JoinDuration.Observe(time.Since(start).Seconds())
	}()

	var warnings []string
	lookups := make(map[string]map[string]model.Raw, len(cfg.Relations))
	for _, rel := range cfg.Relations {
		lookup, dups := e.BuildLookup(parents[rel.Parent], rel.Parent)
		lookups[rel.Name] = lookup
		if len(dups) > 0 {
			warnings = append(warnings, fmt.Sprintf("%s has %d duplicate key(s), first occurrence used", rel.Parent, len(dups)))
		}
	}

	rows := make([]model.ViewRow, 0, len(children))
	for _, child := range children {
		id, err := resolver.ID(child, cfg.Entity)
		if err != nil {
			// The row is still shown; it just cannot be addressed
			// or joined against as a parent.
			e.logger.Warn("child record has no resolvable id", "entity", cfg.Entity)
			id = ""
		}

		fields := flatten(child)
		if ts, err := resolver.Timestamp(child, cfg.DateField); err == nil {
			if _, ok := fields["createdAt"]; !ok {
				fields["createdAt"] = ts
			}
		}

		for _, rel := range cfg.Relations {
			parent, ok := e.lookupParent(child, rel, lookups[rel.Name])
			for _, f := range rel.Fields {
				key := prefixed(rel.Name, f)
				if !ok {
					fields[key] = model.Sentinel
					continue
				}
				if v := parent.Str(f); v != "" {
					fields[key] = v
				} else {
					fields[key] = model.Sentinel
				}
			}
			if !ok {
				e.metrics.SentinelParents.WithLabelValues(rel.Name).Inc()
			}
		}

		rows = append(rows, model.ViewRow{
			ID:     id,
			Entity: cfg.Entity,
			Fields: fields,
			Raw:    child.Clone(),
		})
	}

	e.metrics.JoinedRows.Add(float64(len(rows)))
	return rows, warnings
}

func (e *Engine) lookupParent(child model.Raw, rel model.Relation, lookup map[string]model.Raw) (model.Raw, bool) {
	fk, err := resolver.ForeignKey(child, rel.FK)
	if err != nil {
		return nil, false
	}
	parent, ok := lookup[fk]
	return parent, ok
}

// flatten renders the scalar fields of a record for display and
// filtering. Nested objects and arrays stay behind on Raw.
func flatten(rec model.Raw) map[string]string {
	fields := make(map[string]string, len(rec))
	for k, v := range rec {
		switch v.(type) {
		case string, float64, bool, int:
			fields[k] = rec.Str(k)
		}
	}
	return fields
}

func prefixed(prefix, field string) string {
	if field == "" {
		return prefix
	}
	return prefix + strings.ToUpper(field[:1]) + field[1:]
}
