package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome classifies a remote call.
type Outcome int

const (
	Success Outcome = iota
	ClientFault
	ServerFault
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ClientFault:
		return "client_fault"
	case ServerFault:
		return "server_fault"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Sentinels for errors.Is on a *FaultError.
var (
	ErrClientFault = errors.New("downstream rejected the request")
	ErrServerFault = errors.New("downstream failed")
)

// FaultError is a non-2xx or failed remote call. Message is the downstream
// error text, passed through unchanged so chained services report it as-is.
type FaultError struct {
	Outcome Outcome
	Status  int // downstream HTTP status, 0 when no response arrived
	Message string
	Service string
	Method  string
	URL     string
	Cause   error
}

func (e *FaultError) Error() string { return e.Message }

func (e *FaultError) Unwrap() error { return e.Cause }

func (e *FaultError) Is(target error) bool {
	switch target {
	case ErrClientFault:
		return e.Outcome == ClientFault
	case ErrServerFault:
		return e.Outcome == ServerFault
	}
	return false
}

// HTTPStatus maps the fault onto the caller's own boundary. A client fault
// keeps the downstream 4xx; a server fault keeps a downstream 5xx and
// otherwise becomes 502, or 504 when the call ran out of time.
func (e *FaultError) HTTPStatus() int {
	if e.Outcome == ClientFault && e.Status >= 400 && e.Status < 500 {
		return e.Status
	}
	if e.Status >= 500 {
		return e.Status
	}
	if e.Status == http.StatusGatewayTimeout || isTimeout(e.Cause) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// IsClientFault reports whether err is a remote 4xx.
func IsClientFault(err error) bool { return errors.Is(err, ErrClientFault) }

// IsServerFault reports whether err is a remote 5xx or transport failure.
func IsServerFault(err error) bool { return errors.Is(err, ErrServerFault) }
