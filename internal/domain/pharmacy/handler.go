// Package pharmacy is the front service for pharmacists. It is the only
// client-facing surface that can move a prescription out of PENDING.
package pharmacy

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/domain/prescription"
	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/remote"
	"github.com/medrec/medrec/internal/platform/web"
)

type Handler struct {
	prescriptions *remote.Client
	logger        zerolog.Logger
}

func NewHandler(prescriptions *remote.Client, logger zerolog.Logger) *Handler {
	return &Handler{prescriptions: prescriptions, logger: logger}
}

// RegisterRoutes mounts the pharmacist endpoints behind the PHARMACIST role.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePharmacist))

	g.GET("/prescriptions/:status", h.ListByStatus)
	g.GET("/getPrescription/:id", h.GetPrescription)
	g.PATCH("/approvePrescription/:id", h.Approve)
}

func (h *Handler) ListByStatus(c echo.Context) error {
	raw := web.Param(c, "status")
	status, ok := prescription.ParseStatus(raw)
	if !ok {
		return apperr.Validation("unknown prescription status %q", raw)
	}
	path := remote.Path("prescriptionsByStatus", string(status))
	res := remote.Get[[]prescription.Prescription](c.Request().Context(), h.prescriptions, path)
	return web.Reply(c, http.StatusOK, res)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}
	res := remote.Get[prescription.Prescription](c.Request().Context(), h.prescriptions, remote.Path("getPrescription", id.String()))
	return web.Reply(c, http.StatusOK, res)
}

// Approve checks the requested status locally, so an illegal target never
// costs a round trip, then forwards the decision.
func (h *Handler) Approve(c echo.Context) error {
	pharmacist, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req prescription.TransitionRequest
	if err := web.Bind(c, &req); err != nil {
		return err
	}
	t, err := prescription.NewTransition(req.PrescriptionStatus)
	if err != nil {
		return err
	}
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("principal_id", pharmacist.ID.String()).
		Str("prescription_id", id.String()).
		Str("status", string(t.Target())).
		Msg("prescription decision")

	body := prescription.TransitionRequest{PrescriptionStatus: string(t.Target())}
	path := remote.Path("approvePrescription", id.String())
	res := remote.Patch[prescription.Prescription](c.Request().Context(), h.prescriptions, path, body, web.ForwardHeader(c))
	return web.Reply(c, http.StatusOK, res)
}
