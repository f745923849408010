package patient

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/web"
	"github.com/medrec/medrec/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient record endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group, create ...echo.MiddlewareFunc) {
	g.POST("/newPatient", h.Create, create...)
	g.GET("/getPatientById/:id", h.Get)
	g.GET("/getPatientsByFirstName/:name", h.listBy(h.svc.ListByFirstName))
	g.GET("/getPatientsByLastName/:name", h.listBy(h.svc.ListByLastName))
	g.GET("/getPatientsByBloodType/:name", h.listBy(h.svc.ListByBloodType))
	g.GET("/getPatientAddress/:id", h.Address)
	g.DELETE("/deletePatient/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in NewPatient
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
	id, err := web.UUIDParam(c, "id", "patient")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Address(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "patient")
	if err != nil {
		return err
	}
	a, err := h.svc.Address(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type listFunc func(ctx context.Context, value string, pg pagination.Params) ([]*Patient, error)

func (h *Handler) listBy(list listFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := list(c.Request().Context(), web.Param(c, "name"), pagination.FromContext(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, items)
	}
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "patient")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}
