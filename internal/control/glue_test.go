package control

import (
	"context"
	"testing"

	"github.com/sebas/renderbridge/internal/description"
	"github.com/sebas/renderbridge/internal/registry"
	"github.com/stretchr/testify/assert"
)

func deviceWith(udn string, volume int, master *registry.RendererDevice) *registry.RendererDevice {
	d := &registry.RendererDevice{UDN: udn, Name: udn, LastVolume: volume, Running: true, Master: master}
	return d
}

func TestGroupVolumeRequiresGroupService(t *testing.T) {
	g := New(nil)
	coordinator := deviceWith("uuid:a", 40, nil)

	_, err := g.GroupVolume(context.Background(), coordinator, nil)
	assert.Error(t, err)
}

func TestGroupVolumeMeanOfKnownVolumes(t *testing.T) {
	g := New(nil)
	coordinator := deviceWith("uuid:a", 40, nil)
	coordinator.Services[description.KindGroupRenderingControl] = registry.ServiceRecord{
		Service: description.Service{Populated: true},
	}
	coordinator.Master = coordinator

	b := deviceWith("uuid:b", 60, coordinator)

	vol, err := g.GroupVolume(context.Background(), coordinator, []*registry.RendererDevice{b})
	assert.NoError(t, err)
	assert.Equal(t, 50, vol)
}

func TestGroupVolumeIgnoresNonMembers(t *testing.T) {
	g := New(nil)
	coordinator := deviceWith("uuid:a", 40, nil)
	coordinator.Services[description.KindGroupRenderingControl] = registry.ServiceRecord{
		Service: description.Service{Populated: true},
	}
	coordinator.Master = coordinator

	other := deviceWith("uuid:other", 90, nil) // Master is nil, not coordinator

	vol, err := g.GroupVolume(context.Background(), coordinator, []*registry.RendererDevice{other})
	assert.NoError(t, err)
	assert.Equal(t, 40, vol, "non-member device must not be counted")
}
