package locator

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrUnavailable is returned when the device has no position fix.
	ErrUnavailable = errors.New("device position unavailable")
	// ErrPermissionDenied is returned when location access was not granted.
	ErrPermissionDenied = errors.New("location permission not granted")
)

// Coords is a latitude/longitude pair.
type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PositionSource yields the current device position.
type PositionSource interface {
	Current(ctx context.Context) (Coords, error)
	Authorized() bool
}

// Device keeps the last position reported by the device together with the
// location permission state. It is safe for concurrent use.
type Device struct {
	mu         sync.RWMutex
	fix        *Coords
	reportedAt time.Time
	authorized bool
}

// NewDevice returns a Device. A nil fix means no position has been reported yet.
func NewDevice(fix *Coords, authorized bool) *Device {
	d := &Device{authorized: authorized}
	if fix != nil {
		c := *fix
		d.fix = &c
		d.reportedAt = time.Now().UTC()
	}
	return d
}

// Report records a new position fix.
func (d *Device) Report(c Coords) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fix = &c
	d.reportedAt = time.Now().UTC()
}

// SetAuthorized records the permission decision.
func (d *Device) SetAuthorized(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.authorized = ok
}

// Authorized reports whether location access was granted.
func (d *Device) Authorized() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.authorized
}

// Current returns the last fix.
func (d *Device) Current(ctx context.Context) (Coords, error) {
	if err := ctx.Err(); err != nil {
		return Coords{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.authorized {
		return Coords{}, ErrPermissionDenied
	}
	if d.fix == nil {
		return Coords{}, ErrUnavailable
	}
	return *d.fix, nil
}

// ReportedAt returns when the last fix arrived; zero if none.
func (d *Device) ReportedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reportedAt
}
