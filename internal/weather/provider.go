package weather

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/benmeehan/weather-display-agent/internal/models"
)

// Provider fetches current conditions for a resolved location.
type Provider interface {
	FetchCurrent(ctx context.Context, loc models.Location) (models.WeatherSnapshot, error)
}

// LocationResolver turns a free-text query or postal code into a
// resolved location.
type LocationResolver interface {
	ResolveLocation(ctx context.Context, query string, unit models.TemperatureUnit) (models.Location, error)
}

// Failure kinds surfaced by providers. Callers classify with errors.Is;
// a failure never carries partial weather data.
var (
	ErrNotFound = errors.New("location not found")
	ErrNetwork  = errors.New("network failure")
	ErrTimeout  = errors.New("request timed out")
	ErrUpstream = errors.New("unexpected upstream response")
)

// IsFetchError reports whether err is one of the provider failure kinds.
// The scheduler counts these as ordinary cycle outcomes; anything else
// is treated as an unexpected fault.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrTimeout) || errors.Is(err, ErrUpstream)
}

// classifyTransport wraps a raw HTTP transport error into one of the
// public failure kinds. Deadline expiry is reported as a timeout, all
// other transport faults as network failures.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// isTransientInfra matches failures typical of a network stack that is
// not up yet, such as right after boot or during a wifi reconnect.
// These get a single short-backoff retry before surfacing.
func isTransientInfra(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	for _, errno := range []syscall.Errno{
		syscall.ENETUNREACH,
		syscall.ENETDOWN,
		syscall.EHOSTUNREACH,
		syscall.EHOSTDOWN,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
