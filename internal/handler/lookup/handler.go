// Package lookup serves the search-select comboboxes in the creation
// flows: narrow candidates as the user types, then resolve a chosen
// parent record into the dependent form's auto-filled fields.
package lookup

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-ops/internal/fetcher"
	"github.com/jwalitptl/clinic-ops/internal/join"
	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/query"
	"github.com/jwalitptl/clinic-ops/internal/resolver"
	"github.com/jwalitptl/clinic-ops/internal/selectbox"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
	"github.com/jwalitptl/clinic-ops/pkg/httputil"
)

const maxCandidates = 20

type Handler struct {
	loader  *fetcher.Loader
	join    *join.Engine
	query   *query.Engine
	screens map[string]model.EntityConfig
}

func NewHandler(loader *fetcher.Loader, j *join.Engine, q *query.Engine) *Handler {
	return &Handler{
		loader:  loader,
		join:    j,
		query:   q,
		screens: model.Screens(),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	lookup := rg.Group("/lookup")
	lookup.GET("/:entity", h.candidates)
	lookup.POST("/:entity/resolve", h.resolve)
}

// candidates narrows the target collection by the typed query.
func (h *Handler) candidates(c *gin.Context) {
	box, err := h.box(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	box.Focus()
	got := box.Input(c.Query("q"))
	if len(got) > maxCandidates {
		got = got[:maxCandidates]
	}
	httputil.RespondWithSuccess(c, got)
}

type resolveRequest struct {
	ID string `json:"id" binding:"required"`
}

// resolve selects one candidate and returns the dependent form fields
// it auto-fills.
func (h *Handler) resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("id is required", err))
		return
	}

	box, err := h.box(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resolved, err := box.Select(req.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resolved)
}

// box assembles a combobox over the requested collection's current
// generation. Each request gets a fresh box; the stateful lifecycle
// matters to in-process consumers, while HTTP clients re-narrow on
// every keystroke anyway.
func (h *Handler) box(c *gin.Context) (*selectbox.Box, error) {
	entity := c.Param("entity")
	cfg, ok := h.screens[entity]
	if !ok {
		return nil, errors.NotFound("collection", nil)
	}
	resolveFn, ok := resolvers[entity]
	if !ok {
		return nil, errors.BadRequest("collection has no lookup support", nil)
	}

	snap, err := h.loader.LoadSnapshot(c.Request.Context())
	if err != nil {
		return nil, err
	}

	rows, _ := h.join.Rows(snap.Records(entity), cfg, snap.Collections)
	box := selectbox.New(cfg, h.query, resolveFn)
	if err := box.SetCandidates(snap.Generation, rows); err != nil {
		return nil, err
	}
	return box, nil
}

// resolvers maps a lookup collection to the dependent fields a
// selection auto-fills. Choosing an appointment fills the customer and
// consultant identities for a new treatment outcome; choosing a
// treatment fills the parent identities for a new lab test. Foreign
// keys go through the alias resolver: some responses carry them as
// flat `<entity>ID` fields, others nest the parent as an object, and
// an auto-filled form with a display name but an empty key is exactly
// the silent mis-link this flow must not produce.
var resolvers = map[string]selectbox.ResolveFn{
	model.EntityAppointment: func(r model.ViewRow) map[string]string {
		return map[string]string{
			"appointmentID":  r.ID,
			"code":           r.Field("code"),
			"customerID":     foreignKey(r, model.EntityCustomer),
			"customerName":   r.Field("customerName"),
			"consultantID":   foreignKey(r, model.EntityConsultant),
			"consultantName": r.Field("consultantName"),
		}
	},
	model.EntityTreatment: func(r model.ViewRow) map[string]string {
		return map[string]string{
			"treatmentID":  r.ID,
			"diagnosis":    r.Field("diagnosis"),
			"customerID":   foreignKey(r, model.EntityCustomer),
			"customerName": r.Field("customerName"),
			"staffID":      foreignKey(r, model.EntityConsultant),
		}
	},
	model.EntityConsultant: func(r model.ViewRow) map[string]string {
		return map[string]string{
			"consultantID":   r.ID,
			"consultantName": r.Field("name"),
		}
	},
}

func foreignKey(r model.ViewRow, parent string) string {
	id, err := resolver.ForeignKey(r.Raw, parent)
	if err != nil {
		return ""
	}
	return id
}
