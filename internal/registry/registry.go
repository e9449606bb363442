// Package registry owns the fixed-capacity table of discovered renderer
// devices: creation, lookup by identity, and safe teardown under concurrent
// event delivery.
package registry

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sebas/renderbridge/internal/capability"
	"github.com/sebas/renderbridge/internal/description"
	"github.com/sebas/renderbridge/internal/rendererr"
	"github.com/sebas/renderbridge/internal/store"
)

// PlaybackState mirrors the controller-side transport state on a device.
type PlaybackState int

const (
	StateStop PlaybackState = iota
	StatePlay
	StatePause
)

// ServiceRecord is one slot of a device's service table, carrying both the
// resolved description.Service and its live GENA subscription state.
type ServiceRecord struct {
	description.Service
	SubscriptionID string
	Timeout        time.Duration
}

// RendererDevice is one discovered renderer, owned by the Registry, whose
// lifetime runs from successful registration to teardown. All mutable
// fields below Mu are guarded by it.
type RendererDevice struct {
	Mu sync.Mutex

	UDN     string
	Name    string
	BaseURL string

	Services [description.KindTopology + 1]ServiceRecord

	Running bool

	State      PlaybackState
	TrackMeta  string
	LastVolume int // -1 = unknown

	Master *RendererDevice

	Codecs capability.Set

	done chan struct{} // closed when the device's worker pump exits
}

// Registry is the fixed-capacity table of RendererDevices. Insertion is the
// sole commit point: a device never appears in the registry half
// constructed, so teardown can always assume full initialization.
type Registry struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	devices  map[string]*RendererDevice

	subs *store.TTLStore[string, string] // subscription id -> UDN

	unsubscribe func(dev *RendererDevice, rec ServiceRecord)
}

// New builds an empty registry with the given device capacity.
func New(capacity int) *Registry {
	r := &Registry{
		capacity: capacity,
		devices:  make(map[string]*RendererDevice, capacity),
	}
	r.cond = sync.NewCond(&r.mu)
	r.subs = store.NewTTLStoreWithEvict[string, string](30*time.Second, func(sid, udn string) {
		slog.Debug("[Registry] subscription expired", "sid", sid, "udn", udn)
	})
	return r
}

// SetUnsubscribeFunc installs the best-effort async unsubscribe callback
// used by Delete. It must not block.
func (r *Registry) SetUnsubscribeFunc(fn func(dev *RendererDevice, rec ServiceRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribe = fn
}

// Register is the registry's sole commit point: a fully built
// RendererDevice becomes visible to lookups atomically, or not at all.
func (r *Registry) Register(dev *RendererDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.devices) >= r.capacity {
		return rendererr.ErrNoCapacity
	}
	dev.Running = true
	dev.done = make(chan struct{})
	r.devices[dev.UDN] = dev
	slog.Info("[Registry] registered device", "udn", dev.UDN, "name", dev.Name)
	return nil
}

// FindByUDN returns the Running device with the given UDN.
func (r *Registry) FindByUDN(udn string) (*RendererDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[udn]
	if !ok || !d.Running {
		return nil, false
	}
	return d, true
}

// FindByControlURL scans every Running device's service table for a
// control URL match.
func (r *Registry) FindByControlURL(url string) (*RendererDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if !d.Running {
			continue
		}
		for _, svc := range d.Services {
			if svc.Populated && svc.ControlURL == url {
				return d, true
			}
		}
	}
	return nil, false
}

// FindBySubscriptionID resolves an event callback's subscription id to its
// owning device.
func (r *Registry) FindBySubscriptionID(sid string) (*RendererDevice, bool) {
	udn, ok := r.subs.Get(sid)
	if !ok {
		return nil, false
	}
	return r.FindByUDN(udn)
}

// FindByEventURL scans within one device's service table for the service
// whose eventSubURL matches, used once the subscription id has already
// resolved the owning device.
func FindByEventURL(dev *RendererDevice, url string) (description.ServiceKind, bool) {
	for kind, svc := range dev.Services {
		if svc.Populated && svc.EventSubURL == url {
			return description.ServiceKind(kind), true
		}
	}
	return 0, false
}

// RecordSubscription stores a new GENA subscription id for a device's
// service slot and indexes it for FindBySubscriptionID lookups.
func (r *Registry) RecordSubscription(dev *RendererDevice, kind description.ServiceKind, sid string, timeout time.Duration) {
	dev.Mu.Lock()
	dev.Services[kind].SubscriptionID = sid
	dev.Services[kind].Timeout = timeout
	dev.Mu.Unlock()

	r.subs.Set(sid, dev.UDN, timeout)
}

// WithRunning is the universal "acquire_and_lock" pattern: it locks the
// device mutex, and only invokes fn while Running remains true, releasing
// the lock before returning. Every event callback must route through this
// before touching device state, so that events arriving after teardown are
// dropped silently rather than racing it.
func (r *Registry) WithRunning(udn string, fn func(*RendererDevice) error) error {
	dev, ok := r.FindByUDN(udn)
	if !ok {
		return rendererr.ErrDeviceNotRunning
	}

	dev.Mu.Lock()
	defer dev.Mu.Unlock()
	if !dev.Running {
		return rendererr.ErrDeviceNotRunning
	}
	return fn(dev)
}

// Delete tears a device down: for every populated service with a live
// subscription, fire a best-effort asynchronous unsubscribe; mark the
// device not Running; wake anyone sleeping on the teardown condition; then
// join the device's worker pump.
func (r *Registry) Delete(dev *RendererDevice) {
	dev.Mu.Lock()
	for kind, svc := range dev.Services {
		if svc.Populated && svc.Timeout > 0 {
			r.mu.Lock()
			unsub := r.unsubscribe
			r.mu.Unlock()
			if unsub != nil {
				rec := svc
				go unsub(dev, rec)
			}
			_ = kind
		}
	}
	dev.Running = false
	done := dev.done
	dev.Mu.Unlock()

	r.mu.Lock()
	delete(r.devices, dev.UDN)
	r.cond.Broadcast()
	r.mu.Unlock()

	if done != nil {
		<-done
	}
	slog.Info("[Registry] deleted device", "udn", dev.UDN)
}

// WorkerDone signals that a device's worker pump has exited, unblocking
// any Delete call waiting on it.
func WorkerDone(dev *RendererDevice) {
	dev.Mu.Lock()
	ch := dev.done
	dev.Mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
}

// Wait blocks on the registry's teardown condition, used by device workers
// sleeping on a timer that must wake promptly when a device is deleted.
func (r *Registry) Wait() {
	r.mu.Lock()
	r.cond.Wait()
	r.mu.Unlock()
}

// FlushAll stops and deletes every Running device. stopFn is invoked
// synchronously for any device in Play or Pause state before teardown,
// since the underlying RSP stack may otherwise block shutdown.
func (r *Registry) FlushAll(stopFn func(*RendererDevice) error) {
	r.mu.Lock()
	all := make([]*RendererDevice, 0, len(r.devices))
	for _, d := range r.devices {
		all = append(all, d)
	}
	r.mu.Unlock()

	for _, d := range all {
		d.Mu.Lock()
		playing := d.State == StatePlay || d.State == StatePause
		d.Mu.Unlock()

		if playing && stopFn != nil {
			if err := stopFn(d); err != nil {
				slog.Warn("[Registry] stop before flush failed", "udn", d.UDN, "error", err)
			}
		}
		r.Delete(d)
	}
}

// Close tears down every device and stops the subscription store's
// cleanup goroutine.
func (r *Registry) Close() {
	r.FlushAll(nil)
	r.subs.Close()
}

// UUIDFromUDN extracts the bare UUID out of a "uuid:<X>" UDN string.
func UUIDFromUDN(udn string) string {
	return strings.TrimPrefix(udn, "uuid:")
}

// Snapshot is a read-only view of a device used by the topology resolver,
// which must never hold the registry lock while walking XML.
type Snapshot struct {
	UDN     string
	Running bool
}

// Snapshot returns a point-in-time view of every Running device, safe to
// pass to a pure function like topology resolution.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, Snapshot{UDN: d.UDN, Running: d.Running})
	}
	return out
}
