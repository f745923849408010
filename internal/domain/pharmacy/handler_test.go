package pharmacy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/domain/prescription"
	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/middleware"
	"github.com/medrec/medrec/internal/platform/remote"
)

var pharmacist = auth.Principal{
	ID:        uuid.New(),
	Email:     "fran.lindsay@pharmacy.org",
	FirstName: "Fran",
	LastName:  "Lindsay",
	Role:      auth.RolePharmacist,
}

type received struct {
	method string
	path   string
	body   string
	key    string
}

// fakePrescriptions stands in for the prescription service.
type fakePrescriptions struct {
	mu     sync.Mutex
	log    []received
	status int
	reply  string
}

func (f *fakePrescriptions) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.log = append(f.log, received{
		method: r.Method,
		path:   r.URL.Path,
		body:   string(raw),
		key:    r.Header.Get(middleware.IdempotencyKeyHeader),
	})
	status, reply := f.status, f.reply
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(reply))
}

func (f *fakePrescriptions) calls() []received {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]received(nil), f.log...)
}

func setup(t *testing.T, p *auth.Principal, status int, reply string) (*echo.Echo, *fakePrescriptions) {
	fake := &fakePrescriptions{status: status, reply: reply}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	if p != nil {
		principal := *p
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), principal)))
				return next(c)
			}
		})
	}
	NewHandler(remote.New("prescription", srv.URL), zerolog.Nop()).RegisterRoutes(e.Group(""))
	return e, fake
}

func serve(e *echo.Echo, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestApprove_IllegalTargetsNeverLeave(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"pending", `{"prescriptionStatus":"PENDING"}`},
		{"unknown", `{"prescriptionStatus":"SHIPPED"}`},
		{"missing", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fake := setup(t, &pharmacist, http.StatusOK, `{}`)
			rec := serve(e, http.MethodPatch, "/approvePrescription/"+uuid.NewString(), tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if n := len(fake.calls()); n != 0 {
				t.Errorf("expected no remote call, got %d", n)
			}
		})
	}
}

func TestApprove_ForwardsNormalizedTargetAndKey(t *testing.T) {
	id := uuid.New()
	reply, _ := json.Marshal(prescription.Prescription{ID: id, Name: "Amoxicillin", Dosage: 20, Status: prescription.StatusApproved})
	e, fake := setup(t, &pharmacist, http.StatusOK, string(reply))

	rec := serve(e, http.MethodPatch, "/approvePrescription/"+id.String(), `{"prescriptionStatus":"approved"}`,
		map[string]string{middleware.IdempotencyKeyHeader: "decide-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	var got prescription.Prescription
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != prescription.StatusApproved {
		t.Errorf("expected APPROVED, got %s", got.Status)
	}

	calls := fake.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one remote call, got %d", len(calls))
	}
	c := calls[0]
	if c.method != http.MethodPatch || c.path != "/approvePrescription/"+id.String() {
		t.Errorf("unexpected call %s %s", c.method, c.path)
	}
	if strings.TrimSpace(c.body) != `{"prescriptionStatus":"APPROVED"}` {
		t.Errorf("unexpected body %s", c.body)
	}
	if c.key != "decide-1" {
		t.Errorf("expected idempotency key forwarded, got %q", c.key)
	}
}

func TestApprove_ConflictPassesThrough(t *testing.T) {
	e, _ := setup(t, &pharmacist, http.StatusConflict, `{"message":"prescription already APPROVED"}`)

	rec := serve(e, http.MethodPatch, "/approvePrescription/"+uuid.NewString(), `{"prescriptionStatus":"DENIED"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	var b apperr.Body
	json.Unmarshal(rec.Body.Bytes(), &b)
	if b.Message != "prescription already APPROVED" {
		t.Errorf("unexpected message %q", b.Message)
	}
}

func TestListByStatus(t *testing.T) {
	e, fake := setup(t, &pharmacist, http.StatusOK, `[]`)

	rec := serve(e, http.MethodGet, "/prescriptions/pending", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if p := fake.calls()[0].path; p != "/prescriptionsByStatus/PENDING" {
		t.Errorf("unexpected forwarded path %s", p)
	}

	rec = serve(e, http.MethodGet, "/prescriptions/lost", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}
	if n := len(fake.calls()); n != 1 {
		t.Errorf("unknown status must not be forwarded, got %d calls", n)
	}
}

func TestPhysicianCannotApprove(t *testing.T) {
	physician := pharmacist
	physician.Role = auth.RolePhysician
	e, fake := setup(t, &physician, http.StatusOK, `{}`)

	rec := serve(e, http.MethodPatch, "/approvePrescription/"+uuid.NewString(), `{"prescriptionStatus":"APPROVED"}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if len(fake.calls()) != 0 {
		t.Error("denied request reached the prescription service")
	}
}
