package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebas/renderbridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <friendlyName>Living Room</friendlyName>
    <UDN>uuid:RINCON_TEST</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
        <SCPDURL>/xml/AVTransport.xml</SCPDURL>
        <controlURL>/MediaRenderer/AVTransport/Control</controlURL>
        <eventSubURL>/MediaRenderer/AVTransport/Event</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`

func testConfig() *config.Config {
	return &config.Config{
		BridgePrefix: "/bridge/",
		BasePort:     19300,
		MaxPortTries: 20,
		HeadBufSize:  1024,
		TailBufSize:  4096,
		MaxBlock:     512,
		MaxChunkSize: 4096,
		PollInterval: 10,
		ICYEnabled:   true,
		ICYInterval:  1 << 20,
		MaxRenderers: 8,
		ServerName:   "renderbridge-test",
	}
}

func TestDiscoverAndRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDescription))
	}))
	defer srv.Close()

	b := New(testConfig())
	defer b.Close()

	dev, err := b.DiscoverAndRegister(context.Background(), "uuid:RINCON_TEST", "Living Room", srv.URL+"/description.xml")
	require.NoError(t, err)
	assert.Equal(t, "uuid:RINCON_TEST", dev.UDN)

	found, ok := b.Registry().FindByUDN("uuid:RINCON_TEST")
	assert.True(t, ok)
	assert.Same(t, dev, found)
}

func TestDiscoverAndRegisterGeneratesUDNWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDescription))
	}))
	defer srv.Close()

	b := New(testConfig())
	defer b.Close()

	dev, err := b.DiscoverAndRegister(context.Background(), "", "Kitchen", srv.URL+"/description.xml")
	require.NoError(t, err)
	assert.NotEmpty(t, dev.UDN)
}

func TestNegotiateCodecPrefersControllerOrder(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	d, err := b.DiscoverAndRegister(context.Background(), "uuid:codec-test", "Office", mustDescriptionServer(t))
	require.NoError(t, err)

	mime, ok := b.NegotiateCodec(d, "http-get:*:audio/mpeg:*,http-get:*:audio/flac:*", []string{"flc", "mp3"})
	require.True(t, ok)
	assert.Equal(t, "audio/flac", mime)
}

func mustDescriptionServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDescription))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/description.xml"
}
