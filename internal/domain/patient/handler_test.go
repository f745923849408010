package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()

	body := `{"firstName":"Ada","lastName":"Lovelace","dateOfBirth":"1980-04-12","bloodType":"O+","address":{"city":"London"}}`
	req := httptest.NewRequest(http.MethodPost, "/newPatient", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_ListByBloodType_EscapedAndPaged(t *testing.T) {
	h, e := newTestHandler()
	ctx := context.Background()
	h.svc.Create(ctx, newPatient("Ada", "Lovelace", "A+"))
	h.svc.Create(ctx, newPatient("Alan", "Turing", "A+"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=1", nil), rec)
	c.SetParamNames("name")
	c.SetParamValues("A%2B")
	if err := h.listBy(h.svc.ListByBloodType)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []Patient
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 1 {
		t.Errorf("expected one item on the page, got %d", len(items))
	}
}

func TestHandler_Address(t *testing.T) {
	h, e := newTestHandler()
	p, _ := h.svc.Create(context.Background(), newPatient("Ada", "Lovelace", "O+"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.Address(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var a Address
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Street != "221B Baker Street" {
		t.Errorf("unexpected address %+v", a)
	}
}
