package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medrec/medrec/internal/platform/middleware"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, New("prescription", srv.URL+"/")
}

func TestDo_Success(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody item
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(item{ID: "1", Name: gotBody.Name})
	})

	res := Post[item](context.Background(), c, "/newPrescription", item{Name: "Amoxicillin"}, nil)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Fault)
	}
	if res.Value.ID != "1" || res.Value.Name != "Amoxicillin" {
		t.Errorf("unexpected value %+v", res.Value)
	}
	if gotMethod != http.MethodPost || gotPath != "/newPrescription" {
		t.Errorf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}
}

func TestDo_ClientFaultPassesMessageThrough(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `"Prescription dosage must be between 1 and 127cc."`)
	})

	res := Post[item](context.Background(), c, "/newPrescription", item{}, nil)
	if res.Outcome != ClientFault {
		t.Fatalf("expected client fault, got %v", res.Outcome)
	}
	_, err := res.Unwrap()
	if !IsClientFault(err) || IsServerFault(err) {
		t.Errorf("unexpected classification for %v", err)
	}
	if err.Error() != "Prescription dosage must be between 1 and 127cc." {
		t.Errorf("message not passed through: %q", err.Error())
	}
	var fe *FaultError
	if !errors.As(err, &fe) || fe.HTTPStatus() != http.StatusForbidden {
		t.Errorf("expected 403 to be preserved, got %+v", fe)
	}
}

func TestDo_ErrorBodyShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message object", http.StatusNotFound, `{"message":"appointment 7 not found"}`, "appointment 7 not found"},
		{"json string", http.StatusBadRequest, `"bad date"`, "bad date"},
		{"plain text", http.StatusConflict, "already exists\n", "already exists"},
		{"empty", http.StatusNotFound, "", "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			res := Get[item](context.Background(), c, "/x")
			if res.Fault == nil || res.Fault.Message != tt.want {
				t.Errorf("expected message %q, got %+v", tt.want, res.Fault)
			}
		})
	}
}

func TestDo_ServerFault(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"message":"database unavailable"}`)
	})

	res := Get[item](context.Background(), c, "/getPrescription/1")
	if res.Outcome != ServerFault {
		t.Fatalf("expected server fault, got %v", res.Outcome)
	}
	if res.Fault.HTTPStatus() != http.StatusServiceUnavailable {
		t.Errorf("expected downstream 503 to be preserved, got %d", res.Fault.HTTPStatus())
	}
	if res.Fault.Message != "database unavailable" {
		t.Errorf("unexpected message %q", res.Fault.Message)
	}
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := Get[item](context.Background(), New("appointment", url), "/x")
	if res.Outcome != ServerFault {
		t.Fatalf("expected server fault, got %v", res.Outcome)
	}
	if res.Fault.HTTPStatus() != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", res.Fault.HTTPStatus())
	}
	if res.Fault.Message != "appointment service unavailable" {
		t.Errorf("unexpected message %q", res.Fault.Message)
	}
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New("appointment", srv.URL, WithTimeout(50*time.Millisecond))
	res := Get[item](context.Background(), c, "/slow")
	if res.Outcome != ServerFault {
		t.Fatalf("expected server fault, got %v", res.Outcome)
	}
	if res.Fault.HTTPStatus() != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", res.Fault.HTTPStatus())
	}
}

func TestDo_NoRetry(t *testing.T) {
	calls := 0
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	Get[item](context.Background(), c, "/x")
	if calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
}

func TestDo_MalformedSuccessBody(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{not json")
	})
	res := Get[item](context.Background(), c, "/x")
	if res.Outcome != ServerFault {
		t.Errorf("expected server fault for undecodable body, got %v", res.Outcome)
	}
}

func TestDelete_EmptyBody(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	})
	if res := Delete(context.Background(), c, "/deleteAppointment/1"); !res.OK() {
		t.Errorf("expected success, got %v", res.Fault)
	}
}

func TestDo_ForwardsRequestIDAndHeaders(t *testing.T) {
	var rid, idem string
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		rid = r.Header.Get(middleware.RequestIDHeader)
		idem = r.Header.Get("Idempotency-Key")
		io.WriteString(w, `{}`)
	})
	ctx := middleware.WithRequestID(context.Background(), "req-42")
	h := http.Header{}
	h.Set("Idempotency-Key", "k1")
	Post[item](ctx, c, "/x", item{}, h)
	if rid != "req-42" {
		t.Errorf("expected request id to be forwarded, got %q", rid)
	}
	if idem != "k1" {
		t.Errorf("expected idempotency key to be forwarded, got %q", idem)
	}
}

func TestPath(t *testing.T) {
	if got := Path("myAppointments", "Ana María", "O/Neil"); got != "/myAppointments/Ana%20Mar%C3%ADa/O%2FNeil" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestResult_Unwrap(t *testing.T) {
	ok := succeeded(item{ID: "1"})
	if v, err := ok.Unwrap(); err != nil || v.ID != "1" {
		t.Errorf("unexpected unwrap %+v %v", v, err)
	}
	bad := failed[item](&FaultError{Outcome: ServerFault, Message: "down"})
	if _, err := bad.Unwrap(); !errors.Is(err, ErrServerFault) {
		t.Errorf("expected server fault, got %v", err)
	}
}
