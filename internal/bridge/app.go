// Package bridge wires the registry, description walker, controller glue,
// and audio server into one running process: the top-level object cmd/
// constructs and drives.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sebas/renderbridge/internal/audioserver"
	"github.com/sebas/renderbridge/internal/capability"
	"github.com/sebas/renderbridge/internal/config"
	"github.com/sebas/renderbridge/internal/control"
	"github.com/sebas/renderbridge/internal/description"
	"github.com/sebas/renderbridge/internal/registry"
)

// Bridge owns the device registry and the controller glue bound to it, and
// hands out per-track ActiveStreams on demand.
type Bridge struct {
	cfg     *config.Config
	reg     *registry.Registry
	glue    *control.Glue
	httpCli *http.Client
}

// New builds a Bridge from a loaded configuration.
func New(cfg *config.Config) *Bridge {
	reg := registry.New(cfg.MaxRenderers)
	b := &Bridge{
		cfg:     cfg,
		reg:     reg,
		glue:    control.New(reg),
		httpCli: &http.Client{Timeout: 10 * time.Second},
	}
	reg.SetUnsubscribeFunc(b.unsubscribe)
	return b
}

// Registry exposes the device table, e.g. for an HTTP control-plane handler.
func (b *Bridge) Registry() *registry.Registry { return b.reg }

// Glue exposes the transport/volume control surface.
func (b *Bridge) Glue() *control.Glue { return b.glue }

// DiscoverAndRegister fetches a device description document from location,
// walks it into a service table, and registers the resulting device. This
// is the bridge's entry point for a renderer found by any upstream
// discovery mechanism (SSDP itself is out of scope here).
func (b *Bridge) DiscoverAndRegister(ctx context.Context, udn, name, location string) (*registry.RendererDevice, error) {
	if udn == "" {
		// A renderer description missing its own UDN still needs a stable
		// registry key; synthesize one rather than refusing the device.
		udn = "uuid:" + uuid.NewString()
		slog.Warn("[Bridge] device description had no UDN, generated one", "udn", udn, "location", location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: build description request: %w", err)
	}
	resp, err := b.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: fetch description from %s: %w", location, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bridge: read description body: %w", err)
	}

	services, err := description.Walk(body, location)
	if err != nil {
		return nil, fmt.Errorf("bridge: walk description: %w", err)
	}

	dev := &registry.RendererDevice{
		UDN:        udn,
		Name:       name,
		BaseURL:    location,
		LastVolume: -1,
	}
	for kind, svc := range services {
		dev.Services[kind] = registry.ServiceRecord{Service: svc}
	}

	if err := b.reg.Register(dev); err != nil {
		return nil, err
	}
	return dev, nil
}

// NegotiateCodec resolves the MIME type the bridge should transcode to for
// dev, given the track's available codec tokens in the controller's
// preferred order, from the ProtocolInfo the device's ConnectionManager
// last reported.
func (b *Bridge) NegotiateCodec(dev *registry.RendererDevice, protocolInfo string, trackTokens []string) (string, bool) {
	dev.Mu.Lock()
	sink := capability.ParseProtocolInfo(protocolInfo, b.cfg.ForcedMIMEs)
	dev.Codecs = sink
	dev.Mu.Unlock()

	accepted := capability.Negotiate(sink, b.cfg.ForcedMIMEs, trackTokens)
	if len(accepted) == 0 {
		return "", false
	}
	mime, err := capability.MIMEFor(accepted[0])
	if err != nil {
		return "", false
	}
	return mime, true
}

// StartTrackStream builds the HTTP audio server for one track, returning
// the URL the bridge will hand the renderer via SetAVTransportURI. The
// returned stream is bound but not yet running: the caller starts it with
// Run. haveDuration reports whether the track's duration is known up front
// (e.g. from container metadata), which narrows the DLNA feature descriptor
// C1 hands to the renderer in the contentFeatures.dlna.org response header.
// The caller owns src's lifetime; Run blocks until the stream completes or
// ctx is cancelled, so it is normally launched in its own goroutine.
func (b *Bridge) StartTrackStream(ctx context.Context, host string, trackIndex int, src audioserver.Source, mime string, haveDuration bool) (*audioserver.ActiveStream, string, error) {
	acfg := audioserver.Config{
		BridgePrefix: b.cfg.BridgePrefix,
		BasePort:     b.cfg.BasePort,
		MaxPortTries: b.cfg.MaxPortTries,
		HeadSize:     b.cfg.HeadBufSize,
		TailSize:     b.cfg.TailBufSize,
		MaxBlock:     b.cfg.MaxBlock,
		MaxChunkSize: b.cfg.MaxChunkSize,
		PollInterval: time.Duration(b.cfg.PollInterval) * time.Millisecond,
		ICYEnabled:   b.cfg.ICYEnabled,
		ICYInterval:  b.cfg.ICYInterval,
		ServerName:   b.cfg.ServerName,
	}

	features := capability.FeatureString(mime, haveDuration)
	stream, err := audioserver.New(acfg, trackIndex, src, mime, features)
	if err != nil {
		return nil, "", fmt.Errorf("bridge: start track stream: %w", err)
	}
	return stream, stream.URL(host), nil
}

// unsubscribe is the registry's best-effort GENA teardown callback. A
// failure here is logged, never surfaced: the device is leaving the
// registry either way.
func (b *Bridge) unsubscribe(dev *registry.RendererDevice, rec registry.ServiceRecord) {
	if rec.SubscriptionID == "" || rec.EventSubURL == "" {
		return
	}
	req, err := http.NewRequest(http.MethodOptions, rec.EventSubURL, nil)
	if err != nil {
		return
	}
	req.Method = "UNSUBSCRIBE"
	req.Header.Set("SID", rec.SubscriptionID)

	resp, err := b.httpCli.Do(req)
	if err != nil {
		slog.Debug("[Bridge] unsubscribe failed", "udn", dev.UDN, "error", err)
		return
	}
	resp.Body.Close()
}

// Close flushes every registered device, first issuing a synchronous
// AVTransport Stop to any device that is playing or paused, and releases
// registry resources.
func (b *Bridge) Close() {
	b.reg.FlushAll(func(dev *registry.RendererDevice) error {
		return b.glue.Stop(context.Background(), dev)
	})
	b.reg.Close()
}
