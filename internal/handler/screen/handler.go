// Package screen serves the read side: every admin screen is one
// endpoint that loads the current snapshot, joins it into view rows
// and runs the query engine over them.
package screen

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-ops/internal/fetcher"
	"github.com/jwalitptl/clinic-ops/internal/handler"
	"github.com/jwalitptl/clinic-ops/internal/join"
	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/query"
	"github.com/jwalitptl/clinic-ops/pkg/httputil"
)

type Handler struct {
	loader   *fetcher.Loader
	join     *join.Engine
	query    *query.Engine
	probes   *join.ProbePool
	screens  map[string]model.EntityConfig
	pageSize int
}

func NewHandler(loader *fetcher.Loader, j *join.Engine, q *query.Engine, probes *join.ProbePool, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = query.DefaultPageSize
	}
	return &Handler{
		loader:   loader,
		join:     j,
		query:    q,
		probes:   probes,
		screens:  model.Screens(),
		pageSize: pageSize,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	screens := rg.Group("/screens")
	screens.GET("/appointments", h.list(model.EntityAppointment))
	screens.GET("/consultants", h.list(model.EntityConsultant))
	screens.GET("/treatments", h.listTreatments)
	screens.GET("/lab-tests", h.list(model.EntityLabTest))
	screens.GET("/transactions", h.list(model.EntityTransaction))
	screens.GET("/blogs", h.list(model.EntityBlogPost))
	screens.GET("/reports", h.reports)
}

func (h *Handler) list(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := h.screens[entity]

		snap, err := h.loader.LoadSnapshot(c.Request.Context())
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		rows, warnings := h.join.Rows(snap.Records(entity), cfg, snap.Collections)
		state := handler.ParseQueryState(c, cfg, h.pageSize)
		res := h.query.Run(rows, cfg, state)

		httputil.RespondWithPagination(c, res.PageRows, state.Page, state.PageSize,
			res.TotalCount, res.TotalPages, append(snap.Warnings(), warnings...))
	}
}

// listTreatments is the consultant test-results screen. On top of the
// regular join it probes, per row, whether a lab test exists for the
// treatment; rows without one do not offer the view-lab-test action.
func (h *Handler) listTreatments(c *gin.Context) {
	cfg := h.screens[model.EntityTreatment]

	snap, err := h.loader.LoadSnapshot(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rows, warnings := h.join.Rows(snap.Records(model.EntityTreatment), cfg, snap.Collections)
	h.probes.AttachLabTestFlags(c.Request.Context(), rows)

	state := handler.ParseQueryState(c, cfg, h.pageSize)
	res := h.query.Run(rows, cfg, state)

	httputil.RespondWithPagination(c, res.PageRows, state.Page, state.PageSize,
		res.TotalCount, res.TotalPages, append(snap.Warnings(), warnings...))
}
