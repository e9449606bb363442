package registry

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebas/renderbridge/internal/description"
	"github.com/sebas/renderbridge/internal/rendererr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(udn string) *RendererDevice {
	return &RendererDevice{UDN: udn, Name: udn, LastVolume: -1}
}

func TestRegisterAndFindByUDN(t *testing.T) {
	r := New(4)
	defer r.Close()

	dev := newTestDevice("uuid:device-1")
	require.NoError(t, r.Register(dev))

	found, ok := r.FindByUDN("uuid:device-1")
	require.True(t, ok)
	assert.Same(t, dev, found)
}

func TestRegisterCapacityExceeded(t *testing.T) {
	r := New(1)
	defer r.Close()

	require.NoError(t, r.Register(newTestDevice("uuid:a")))
	err := r.Register(newTestDevice("uuid:b"))
	assert.ErrorIs(t, err, rendererr.ErrNoCapacity)
}

func TestWithRunningDropsAfterDelete(t *testing.T) {
	r := New(4)
	defer r.Close()

	dev := newTestDevice("uuid:device-2")
	require.NoError(t, r.Register(dev))

	var ran int32
	err := r.WithRunning("uuid:device-2", func(d *RendererDevice) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, ran)

	r.Delete(dev)
	WorkerDone(dev)

	err = r.WithRunning("uuid:device-2", func(d *RendererDevice) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	assert.Error(t, err, "events after teardown must be dropped")
	assert.EqualValues(t, 1, ran, "callback must not run once Running is false")
}

func TestDeleteUnsubscribesOnceUnderConcurrentEvents(t *testing.T) {
	r := New(4)
	defer r.Close()

	dev := newTestDevice("uuid:device-3")
	dev.Services[description.KindAVTransport] = ServiceRecord{
		Service: description.Service{Populated: true},
		Timeout: time.Minute,
	}
	require.NoError(t, r.Register(dev))

	var unsubscribed int32
	r.SetUnsubscribeFunc(func(d *RendererDevice, rec ServiceRecord) {
		atomic.AddInt32(&unsubscribed, 1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.WithRunning("uuid:device-3", func(d *RendererDevice) error { return nil })
		}()
	}

	r.Delete(dev)
	WorkerDone(dev)
	wg.Wait()

	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&unsubscribed))
}

func TestFindByEventURL(t *testing.T) {
	dev := newTestDevice("uuid:device-4")
	dev.Services[description.KindRenderingControl] = ServiceRecord{
		Service: description.Service{Populated: true, EventSubURL: "http://x/RC/Event"},
	}

	kind, ok := FindByEventURL(dev, "http://x/RC/Event")
	require.True(t, ok)
	assert.Equal(t, description.KindRenderingControl, kind)

	_, ok = FindByEventURL(dev, "http://x/none")
	assert.False(t, ok)
}
