package appointment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/web"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the appointment record endpoints. create is applied
// to the creation route only, e.g. idempotency.
func (h *Handler) RegisterRoutes(g *echo.Group, create ...echo.MiddlewareFunc) {
	g.POST("/newAppointment", h.Create, create...)
	g.GET("/getAppointment/:id", h.Get)
	g.GET("/myAppointments/:firstName/:lastName", h.ListByDoctor)
	g.PATCH("/updateAppointmentInfo/:id", h.Update)
	g.DELETE("/deleteAppointment/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in NewAppointment
	if err := web.Bind(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "appointment")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	items, err := h.svc.ListByDoctor(c.Request().Context(), web.Param(c, "firstName"), web.Param(c, "lastName"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "appointment")
	if err != nil {
		return err
	}
	var p Patch
	if err := web.Bind(c, &p); err != nil {
		return err
	}
	a, err := h.svc.Update(c.Request().Context(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "appointment")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}
