package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleZoneGroupState = `<ZoneGroups>
  <ZoneGroup Coordinator="RINCON_AAA" ID="g1">
    <ZoneGroupMember UUID="RINCON_AAA" ZoneName="Living Room"/>
    <ZoneGroupMember UUID="RINCON_BBB" ZoneName="Kitchen"/>
  </ZoneGroup>
  <ZoneGroup Coordinator="RINCON_CCC" ID="g2">
    <ZoneGroupMember UUID="RINCON_CCC" ZoneName="Office"/>
  </ZoneGroup>
</ZoneGroups>`

func TestResolveSelfIsCoordinator(t *testing.T) {
	groups, err := Parse([]byte(sampleZoneGroupState))
	require.NoError(t, err)

	result := Resolve("uuid:RINCON_AAA", groups, nil)
	assert.True(t, result.IsSelf)
	assert.Equal(t, "Living Room", result.DisplayName)
}

func TestResolveSelfIsSlave(t *testing.T) {
	groups, err := Parse([]byte(sampleZoneGroupState))
	require.NoError(t, err)

	reg := []RegistryMember{
		{UDN: "uuid:RINCON_AAA-some-device", Running: true},
	}
	result := Resolve("uuid:RINCON_BBB", groups, reg)
	assert.False(t, result.IsSelf)
	assert.Equal(t, "uuid:RINCON_AAA-some-device", result.MasterUDN)
	assert.Equal(t, "Kitchen", result.DisplayName)
}

func TestResolveNoMatchDefaultsSelf(t *testing.T) {
	groups, err := Parse([]byte(sampleZoneGroupState))
	require.NoError(t, err)

	result := Resolve("uuid:UNKNOWN", groups, nil)
	assert.True(t, result.IsSelf)
	assert.Equal(t, "", result.MasterUDN)
}

func TestResolveSlaveWithNoRunningCoordinatorDefaultsSelf(t *testing.T) {
	groups, err := Parse([]byte(sampleZoneGroupState))
	require.NoError(t, err)

	result := Resolve("uuid:RINCON_BBB", groups, nil)
	assert.True(t, result.IsSelf)
}
