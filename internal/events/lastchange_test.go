package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastChangeBody(inner string) string {
	return `<Event xmlns="urn:schemas-upnp-org:metadata-1-0/AVT/"><InstanceID val="0">` + inner + `</InstanceID></Event>`
}

func TestExtractChangeItemConcrete(t *testing.T) {
	body := `<propertyset><property><LastChange>` +
		escapedLastChange(lastChangeBody(`<Volume channel="Master" val="42"/>`)) +
		`</LastChange></property></propertyset>`

	val, ok, err := ExtractChangeItem([]byte(body), "Volume", "channel", "Master")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", val)
}

func TestExtractChangeItemNoMatch(t *testing.T) {
	body := `<propertyset><property><LastChange>` +
		escapedLastChange(lastChangeBody(`<Volume channel="Master" val="42"/>`)) +
		`</LastChange></property></propertyset>`

	_, ok, err := ExtractChangeItem([]byte(body), "Volume", "channel", "LF")
	require.NoError(t, err)
	assert.False(t, ok)
}

// escapedLastChange mimics the wire format where the embedded document is
// carried as escaped text content inside <LastChange>.
func escapedLastChange(s string) string {
	r := ""
	for _, c := range s {
		switch c {
		case '<':
			r += "&lt;"
		case '>':
			r += "&gt;"
		case '"':
			r += "&quot;"
		default:
			r += string(c)
		}
	}
	return r
}
