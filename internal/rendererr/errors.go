// Package rendererr defines the sentinel errors shared across the bridge's
// components, checked with errors.Is at call sites.
package rendererr

import "errors"

var (
	// ErrDeviceNotRunning indicates the device was torn down between lookup
	// and the operation acquiring its lock.
	ErrDeviceNotRunning = errors.New("renderer device not running")

	// ErrNoCapacity indicates the device registry has reached MAX_RENDERERS.
	ErrNoCapacity = errors.New("device registry at capacity")

	// ErrStreamSuperseded indicates a new ActiveStream replaced this one
	// before it finished.
	ErrStreamSuperseded = errors.New("stream superseded by a newer track")

	// ErrWrongTrackIndex indicates a GET arrived for a stale track index.
	ErrWrongTrackIndex = errors.New("wrong track index")

	// ErrSubscriptionFailed indicates a GENA subscribe/renew attempt failed.
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrServiceNotPopulated indicates the requested service slot has no
	// resolved control URL.
	ErrServiceNotPopulated = errors.New("service not populated")

	// ErrNotCoordinator indicates a group-volume request against a device
	// that is not its zone's coordinator.
	ErrNotCoordinator = errors.New("device is not a group coordinator")

	// ErrActionNotAdvertised indicates the SCPD document does not list the
	// requested action.
	ErrActionNotAdvertised = errors.New("action not advertised by service")
)
