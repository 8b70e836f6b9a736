// Package record exposes the mutation side: validated create, update
// and delete for the collections the admin screens manage.
package record

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-ops/internal/gateway"
	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
	"github.com/jwalitptl/clinic-ops/pkg/httputil"
)

type Handler struct {
	gateway *gateway.Gateway
}

func NewHandler(g *gateway.Gateway) *Handler {
	return &Handler{gateway: g}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/treatments", h.createTreatment)
	rg.PUT("/treatments/:id", h.updateTreatment)
	rg.DELETE("/treatments/:id", h.delete(model.EntityTreatment))

	rg.POST("/lab-tests", h.createLabTest)
	rg.PUT("/lab-tests/:id", h.updateLabTest)
	rg.DELETE("/lab-tests/:id", h.delete(model.EntityLabTest))

	rg.POST("/consultants", h.createConsultant)
	rg.PUT("/consultants/:id", h.updateConsultant)
	rg.DELETE("/consultants/:id", h.delete(model.EntityConsultant))

	rg.POST("/blogs", h.createBlogPost)
	rg.PUT("/blogs/:id", h.updateBlogPost)
	rg.DELETE("/blogs/:id", h.delete(model.EntityBlogPost))

	rg.PUT("/appointments/:id/status", h.updateAppointmentStatus)
}

func (h *Handler) createTreatment(c *gin.Context) {
	var in model.TreatmentOutcomeInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.CreateTreatmentOutcome(c.Request.Context(), &in)
	respond(c, env, err)
}

func (h *Handler) updateTreatment(c *gin.Context) {
	var in model.TreatmentOutcomeInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.UpdateTreatmentOutcome(c.Request.Context(), c.Param("id"), &in)
	respond(c, env, err)
}

func (h *Handler) createLabTest(c *gin.Context) {
	var in model.LabTestInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.CreateLabTest(c.Request.Context(), &in)
	respond(c, env, err)
}

func (h *Handler) updateLabTest(c *gin.Context) {
	var in model.LabTestInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.UpdateLabTest(c.Request.Context(), c.Param("id"), &in)
	respond(c, env, err)
}

func (h *Handler) createConsultant(c *gin.Context) {
	var in model.ConsultantInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.CreateConsultant(c.Request.Context(), &in)
	respond(c, env, err)
}

func (h *Handler) updateConsultant(c *gin.Context) {
	var in model.ConsultantInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.UpdateConsultant(c.Request.Context(), c.Param("id"), &in)
	respond(c, env, err)
}

func (h *Handler) createBlogPost(c *gin.Context) {
	var in model.BlogPostInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.CreateBlogPost(c.Request.Context(), &in)
	respond(c, env, err)
}

func (h *Handler) updateBlogPost(c *gin.Context) {
	var in model.BlogPostInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.UpdateBlogPost(c.Request.Context(), c.Param("id"), &in)
	respond(c, env, err)
}

func (h *Handler) updateAppointmentStatus(c *gin.Context) {
	var in model.AppointmentStatusInput
	if !bind(c, &in) {
		return
	}
	env, err := h.gateway.UpdateAppointmentStatus(c.Request.Context(), c.Param("id"), &in)
	respond(c, env, err)
}

func (h *Handler) delete(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		env, err := h.gateway.Delete(c.Request.Context(), entity, c.Param("id"))
		respond(c, env, err)
	}
}

func bind(c *gin.Context, in any) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("malformed request body", err))
		return false
	}
	return true
}

func respond(c *gin.Context, env *model.Envelope, err error) {
	if err != nil {
		if verr, ok := gateway.AsValidationError(err); ok {
			httputil.RespondWithValidationErrors(c, verr.Fields)
			return
		}
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, env.Data)
}
