package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anacrolix/dms/soap"
	"github.com/sebas/renderbridge/internal/description"
	"github.com/sebas/renderbridge/internal/rendererr"
	"github.com/sebas/renderbridge/internal/registry"
)

// Glue is the thin controller-facing coordinator: it knows how to turn
// transport commands into SOAP calls against a device's resolved service
// table, and how to relay renderer state upward.
type Glue struct {
	client *Client
	reg    *registry.Registry
}

// New builds a Glue bound to a device registry.
func New(reg *registry.Registry) *Glue {
	return &Glue{client: NewClient(), reg: reg}
}

func (g *Glue) controlURL(dev *registry.RendererDevice, kind description.ServiceKind) (string, error) {
	dev.Mu.Lock()
	defer dev.Mu.Unlock()
	svc := dev.Services[kind]
	if !svc.Populated {
		return "", rendererr.ErrServiceNotPopulated
	}
	return svc.ControlURL, nil
}

// SetAVTransportURI invokes AVTransport.SetAVTransportURI for the URL an
// ActiveStream exposes, the action start_stream uses to point the
// renderer at the bridge.
func (g *Glue) SetAVTransportURI(ctx context.Context, dev *registry.RendererDevice, streamURL, metadata string) error {
	controlURL, err := g.controlURL(dev, description.KindAVTransport)
	if err != nil {
		return err
	}
	_, err = g.client.Invoke(ctx, controlURL, "urn:schemas-upnp-org:service:AVTransport:1", "SetAVTransportURI", []soap.Arg{
		arg("InstanceID", "0"),
		arg("CurrentURI", streamURL),
		arg("CurrentURIMetaData", metadata),
	})
	return err
}

// Play invokes AVTransport.Play and records the new playback state.
func (g *Glue) Play(ctx context.Context, dev *registry.RendererDevice) error {
	controlURL, err := g.controlURL(dev, description.KindAVTransport)
	if err != nil {
		return err
	}
	if _, err := g.client.Invoke(ctx, controlURL, "urn:schemas-upnp-org:service:AVTransport:1", "Play",
		[]soap.Arg{arg("InstanceID", "0"), arg("Speed", "1")}); err != nil {
		return fmt.Errorf("control: Play: %w", err)
	}
	dev.Mu.Lock()
	dev.State = registry.StatePlay
	dev.Mu.Unlock()
	return nil
}

// Pause invokes AVTransport.Pause.
func (g *Glue) Pause(ctx context.Context, dev *registry.RendererDevice) error {
	controlURL, err := g.controlURL(dev, description.KindAVTransport)
	if err != nil {
		return err
	}
	if _, err := g.client.Invoke(ctx, controlURL, "urn:schemas-upnp-org:service:AVTransport:1", "Pause",
		[]soap.Arg{arg("InstanceID", "0")}); err != nil {
		return fmt.Errorf("control: Pause: %w", err)
	}
	dev.Mu.Lock()
	dev.State = registry.StatePause
	dev.Mu.Unlock()
	return nil
}

// Stop invokes AVTransport.Stop. This is also the action the registry's
// flush_all path requires before tearing down a playing/paused device.
func (g *Glue) Stop(ctx context.Context, dev *registry.RendererDevice) error {
	controlURL, err := g.controlURL(dev, description.KindAVTransport)
	if err != nil {
		return err
	}
	if _, err := g.client.Invoke(ctx, controlURL, "urn:schemas-upnp-org:service:AVTransport:1", "Stop",
		[]soap.Arg{arg("InstanceID", "0")}); err != nil {
		return fmt.Errorf("control: Stop: %w", err)
	}
	dev.Mu.Lock()
	dev.State = registry.StateStop
	dev.Mu.Unlock()
	return nil
}

// Seek invokes AVTransport.Seek in REL_TIME units. This RSP-side,
// renderer-native seek is distinct from the excluded CSP-side byte-offset
// seek: the renderer repositions its own playback clock, the bridge never
// reaches backward into already-sent bytes.
func (g *Glue) Seek(ctx context.Context, dev *registry.RendererDevice, target string) error {
	controlURL, err := g.controlURL(dev, description.KindAVTransport)
	if err != nil {
		return err
	}
	_, err = g.client.Invoke(ctx, controlURL, "urn:schemas-upnp-org:service:AVTransport:1", "Seek",
		[]soap.Arg{arg("InstanceID", "0"), arg("Unit", "REL_TIME"), arg("Target", target)})
	return err
}

// SetVolume invokes RenderingControl.SetVolume and caches the last-sent
// value on the device.
func (g *Glue) SetVolume(ctx context.Context, dev *registry.RendererDevice, volume int) error {
	controlURL, err := g.controlURL(dev, description.KindRenderingControl)
	if err != nil {
		return err
	}
	_, err = g.client.Invoke(ctx, controlURL, "urn:schemas-upnp-org:service:RenderingControl:1", "SetVolume",
		[]soap.Arg{arg("InstanceID", "0"), arg("Channel", "Master"), arg("DesiredVolume", fmt.Sprint(volume))})
	if err != nil {
		return fmt.Errorf("control: SetVolume: %w", err)
	}
	dev.Mu.Lock()
	dev.LastVolume = volume
	dev.Mu.Unlock()
	return nil
}

// GetVolume invokes RenderingControl.GetVolume, caching the result on the
// device for later lazy reads (e.g. by GroupVolume).
func (g *Glue) GetVolume(ctx context.Context, dev *registry.RendererDevice) (int, error) {
	controlURL, err := g.controlURL(dev, description.KindRenderingControl)
	if err != nil {
		return -1, err
	}
	resp, err := g.client.Invoke(ctx, controlURL, "urn:schemas-upnp-org:service:RenderingControl:1", "GetVolume",
		[]soap.Arg{arg("InstanceID", "0"), arg("Channel", "Master")})
	if err != nil {
		return -1, fmt.Errorf("control: GetVolume: %w", err)
	}

	var volume int
	if _, err := fmt.Sscanf(resp["CurrentVolume"], "%d", &volume); err != nil {
		return -1, fmt.Errorf("control: parse CurrentVolume: %w", err)
	}

	dev.Mu.Lock()
	dev.LastVolume = volume
	dev.Mu.Unlock()
	return volume, nil
}

// GroupVolume computes a coordinator's group volume: the arithmetic mean
// of Volume across the coordinator itself and every Running device whose
// Master == coordinator. Missing per-device volumes are lazily fetched and
// cached. Returns ErrNotCoordinator if the device has no populated
// GroupRenderingControl service.
func (g *Glue) GroupVolume(ctx context.Context, coordinator *registry.RendererDevice, members []*registry.RendererDevice) (int, error) {
	coordinator.Mu.Lock()
	hasGroupService := coordinator.Services[description.KindGroupRenderingControl].Populated
	coordinator.Mu.Unlock()
	if !hasGroupService {
		return -1, rendererr.ErrNotCoordinator
	}

	total := 0
	count := 0

	for _, dev := range append([]*registry.RendererDevice{coordinator}, members...) {
		dev.Mu.Lock()
		running := dev.Running
		master := dev.Master
		vol := dev.LastVolume
		dev.Mu.Unlock()

		if dev != coordinator {
			if !running || master != coordinator {
				continue
			}
		}

		if vol < 0 {
			fetched, err := g.GetVolume(ctx, dev)
			if err != nil {
				slog.Warn("[Control] group volume: failed to fetch member volume", "udn", dev.UDN, "error", err)
				continue
			}
			vol = fetched
		}
		total += vol
		count++
	}

	if count == 0 {
		return -1, nil
	}
	return total / count, nil
}
