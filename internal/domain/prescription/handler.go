package prescription

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/web"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the prescription record endpoints. writeOnce is
// applied to creation and status transition, e.g. idempotency.
func (h *Handler) RegisterRoutes(g *echo.Group, writeOnce ...echo.MiddlewareFunc) {
	g.POST("/newPrescription", h.Create, writeOnce...)
	g.GET("/getPrescription/:id", h.Get)
	g.GET("/myPrescriptions/:firstName/:lastName", h.ListByDoctor)
	g.GET("/prescriptionsByStatus/:status", h.ListByStatus)
	g.PATCH("/updatePrescriptionInfo/:id", h.Update)
	g.DELETE("/deletePrescription/:id", h.Delete)
	g.PATCH("/approvePrescription/:id", h.Approve, writeOnce...)
}

func (h *Handler) Create(c echo.Context) error {
	var in NewPrescription
	if err := web.Bind(c, &in); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	items, err := h.svc.ListByDoctor(c.Request().Context(), web.Param(c, "firstName"), web.Param(c, "lastName"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListByStatus(c echo.Context) error {
	raw := web.Param(c, "status")
	status, ok := ParseStatus(raw)
	if !ok {
		return apperr.Validation("unknown prescription status %q", raw)
	}
	items, err := h.svc.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}
	var p Patch
	if err := web.Bind(c, &p); err != nil {
		return err
	}
	rx, err := h.svc.Update(c.Request().Context(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// Approve applies a status transition. The target is checked before the
// record is looked up.
func (h *Handler) Approve(c echo.Context) error {
	var req TransitionRequest
	if err := web.Bind(c, &req); err != nil {
		return err
	}
	t, err := NewTransition(req.PrescriptionStatus)
	if err != nil {
		return err
	}
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}
	p, err := h.svc.ApplyTransition(c.Request().Context(), id, t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
