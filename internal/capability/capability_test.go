package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProtocolInfoBasic(t *testing.T) {
	info := "http-get:*:audio/mpeg:*,http-get:*:audio/flac:*,http-get:*:video/mp4:*"
	set := ParseProtocolInfo(info, nil)

	assert.False(t, set.MatchAll)
	assert.Equal(t, []string{"audio/mpeg", "audio/flac"}, set.MIMEs)
}

func TestParseProtocolInfoMatchAll(t *testing.T) {
	set := ParseProtocolInfo("http-get:*:*:*", nil)
	assert.True(t, set.MatchAll)

	set2 := ParseProtocolInfo("http-get:::", nil)
	assert.True(t, set2.MatchAll)
}

func TestSupportedMatchAll(t *testing.T) {
	set := Set{MatchAll: true}
	assert.True(t, Supported(set, nil, "flc"))
	assert.True(t, Supported(set, nil, "dsf"))
}

func TestSupportedDetailsConstraint(t *testing.T) {
	set := ParseProtocolInfo("http-get:*:audio/ogg:codecs=opus", nil)
	assert.True(t, Supported(set, nil, "ops"))
	assert.False(t, Supported(set, nil, "ogf"))
}

func TestSupportedForcedList(t *testing.T) {
	set := ParseProtocolInfo("http-get:*:audio/mpeg:*", nil)
	assert.False(t, Supported(set, nil, "flc"))
	assert.True(t, Supported(set, []string{"audio/flac"}, "flc"))
}

func TestNegotiateOrderPreserved(t *testing.T) {
	set := ParseProtocolInfo("http-get:*:audio/flac:*,http-get:*:audio/mpeg:*", nil)
	got := Negotiate(set, nil, []string{"mp3", "flc", "wma"})
	assert.Equal(t, []string{"mp3", "flc"}, got)
}

func TestMIMEForUnknownToken(t *testing.T) {
	_, err := MIMEFor("xyz")
	require.Error(t, err)
}
