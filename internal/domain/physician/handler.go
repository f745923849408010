// Package physician is the front service for doctors. It holds no records of
// its own: every operation is validated and stamped with the caller's
// identity here, then forwarded to the appointment, prescription or patient
// service.
package physician

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/domain/appointment"
	"github.com/medrec/medrec/internal/domain/patient"
	"github.com/medrec/medrec/internal/domain/prescription"
	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/remote"
	"github.com/medrec/medrec/internal/platform/web"
	"github.com/medrec/medrec/pkg/pagination"
)

type Handler struct {
	appointments  *remote.Client
	prescriptions *remote.Client
	patients      *remote.Client
	logger        zerolog.Logger
	now           func() time.Time
}

func NewHandler(appointments, prescriptions, patients *remote.Client, logger zerolog.Logger) *Handler {
	return &Handler{
		appointments:  appointments,
		prescriptions: prescriptions,
		patients:      patients,
		logger:        logger,
		now:           time.Now,
	}
}

// RegisterRoutes mounts every physician endpoint behind the PHYSICIAN role.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePhysician))

	g.POST("/newAppointment", h.CreateAppointment)
	g.GET("/myAppointments", h.MyAppointments)
	g.PATCH("/updateAppointmentInfo/:id", h.UpdateAppointment)
	g.DELETE("/deleteAppointment/:id", h.DeleteAppointment)

	g.POST("/newPrescription", h.CreatePrescription)
	g.GET("/myPrescriptions", h.MyPrescriptions)
	g.PATCH("/updatePrescriptionInfo/:id", h.UpdatePrescription)
	g.DELETE("/deletePrescription/:id", h.DeletePrescription)

	g.GET("/getPatientById/:id", h.GetPatient)
	g.GET("/getPatientAddress/:id", h.GetPatientAddress)
	g.GET("/getPatientsByFirstName/:name", h.patientList("getPatientsByFirstName"))
	g.GET("/getPatientsByLastName/:name", h.patientList("getPatientsByLastName"))
	g.GET("/getPatientsByBloodType/:name", h.patientList("getPatientsByBloodType"))
}

// -- Appointments --

// CreateAppointment overwrites any doctor fields in the body with the
// caller's own name before validating and forwarding.
func (h *Handler) CreateAppointment(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var in appointment.NewAppointment
	if err := web.Bind(c, &in); err != nil {
		return err
	}
	in.DoctorFirstName = doctor.FirstName
	in.DoctorLastName = doctor.LastName
	if err := in.Validate(h.now()); err != nil {
		return err
	}

	ctx := c.Request().Context()
	res := remote.Post[appointment.Appointment](ctx, h.appointments, "/newAppointment", in, web.ForwardHeader(c))
	return web.Reply(c, http.StatusCreated, res)
}

func (h *Handler) MyAppointments(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	path := remote.Path("myAppointments", doctor.FirstName, doctor.LastName)
	res := remote.Get[[]appointment.Appointment](c.Request().Context(), h.appointments, path)
	return web.Reply(c, http.StatusOK, res)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := web.UUIDParam(c, "id", "appointment")
	if err != nil {
		return err
	}
	var p appointment.Patch
	if err := web.Bind(c, &p); err != nil {
		return err
	}
	if err := p.Validate(h.now()); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.ownAppointment(ctx, doctor, id); err != nil {
		return err
	}
	res := remote.Patch[appointment.Appointment](ctx, h.appointments, remote.Path("updateAppointmentInfo", id.String()), p, nil)
	return web.Reply(c, http.StatusOK, res)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := web.UUIDParam(c, "id", "appointment")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.ownAppointment(ctx, doctor, id); err != nil {
		return err
	}
	return web.Reply(c, http.StatusOK, remote.Delete(ctx, h.appointments, remote.Path("deleteAppointment", id.String())))
}

func (h *Handler) ownAppointment(ctx context.Context, doctor auth.Principal, id uuid.UUID) error {
	a, err := remote.Get[appointment.Appointment](ctx, h.appointments, remote.Path("getAppointment", id.String())).Unwrap()
	if err != nil {
		return err
	}
	if !a.OwnedBy(doctor.FirstName, doctor.LastName) {
		h.logger.Warn().Str("principal_id", doctor.ID.String()).Str("appointment_id", id.String()).Msg("appointment owned by another doctor")
		return apperr.Forbidden("Appointment belongs to another doctor.")
	}
	return nil
}

// -- Prescriptions --

// CreatePrescription forwards a new prescription written by the caller. The
// status is never sent; the prescription service starts every record PENDING.
func (h *Handler) CreatePrescription(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var in prescription.NewPrescription
	if err := web.Bind(c, &in); err != nil {
		return err
	}
	in.DoctorFirstName = doctor.FirstName
	in.DoctorLastName = doctor.LastName
	if err := in.Validate(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	res := remote.Post[prescription.Prescription](ctx, h.prescriptions, "/newPrescription", in, web.ForwardHeader(c))
	return web.Reply(c, http.StatusCreated, res)
}

func (h *Handler) MyPrescriptions(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	path := remote.Path("myPrescriptions", doctor.FirstName, doctor.LastName)
	res := remote.Get[[]prescription.Prescription](c.Request().Context(), h.prescriptions, path)
	return web.Reply(c, http.StatusOK, res)
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}
	var p prescription.Patch
	if err := web.Bind(c, &p); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.ownPrescription(ctx, doctor, id); err != nil {
		return err
	}
	res := remote.Patch[prescription.Prescription](ctx, h.prescriptions, remote.Path("updatePrescriptionInfo", id.String()), p, nil)
	return web.Reply(c, http.StatusOK, res)
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	doctor, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := web.UUIDParam(c, "id", "prescription")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.ownPrescription(ctx, doctor, id); err != nil {
		return err
	}
	return web.Reply(c, http.StatusOK, remote.Delete(ctx, h.prescriptions, remote.Path("deletePrescription", id.String())))
}

func (h *Handler) ownPrescription(ctx context.Context, doctor auth.Principal, id uuid.UUID) error {
	p, err := remote.Get[prescription.Prescription](ctx, h.prescriptions, remote.Path("getPrescription", id.String())).Unwrap()
	if err != nil {
		return err
	}
	if !p.OwnedBy(doctor.FirstName, doctor.LastName) {
		h.logger.Warn().Str("principal_id", doctor.ID.String()).Str("prescription_id", id.String()).Msg("prescription owned by another doctor")
		return apperr.Forbidden("Prescription belongs to another doctor.")
	}
	return nil
}

// -- Patients --

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "patient")
	if err != nil {
		return err
	}
	res := remote.Get[patient.Patient](c.Request().Context(), h.patients, remote.Path("getPatientById", id.String()))
	return web.Reply(c, http.StatusOK, res)
}

func (h *Handler) GetPatientAddress(c echo.Context) error {
	id, err := web.UUIDParam(c, "id", "patient")
	if err != nil {
		return err
	}
	res := remote.Get[patient.Address](c.Request().Context(), h.patients, remote.Path("getPatientAddress", id.String()))
	return web.Reply(c, http.StatusOK, res)
}

// patientList forwards a name or blood type search, keeping the page window.
func (h *Handler) patientList(route string) echo.HandlerFunc {
	return func(c echo.Context) error {
		pg := pagination.FromContext(c)
		path := remote.Path(route, web.Param(c, "name")) + "?" + pg.Values().Encode()
		return web.Reply(c, http.StatusOK, remote.Get[[]patient.Patient](c.Request().Context(), h.patients, path))
	}
}
