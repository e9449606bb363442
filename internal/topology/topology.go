// Package topology resolves a renderer's zone-group coordinator from a
// ZoneGroupState document, the pure-function core of the master/slave
// group model. It never touches the registry directly; callers apply the
// result under the device's lock.
package topology

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// zoneGroupState is the embedded XML fragment returned by a Topology
// service's GetZoneGroupState action. Its root is either ZoneGroups itself
// or an element wrapping ZoneGroups; both forms are accepted.
type zoneGroupState struct {
	Groups  []zoneGroup `xml:"ZoneGroup"`
	Wrapped []zoneGroup `xml:"ZoneGroups>ZoneGroup"`
}

type zoneGroup struct {
	Coordinator string       `xml:"Coordinator,attr"`
	Members     []zoneMember `xml:"ZoneGroupMember"`
}

type zoneMember struct {
	UUID     string `xml:"UUID,attr"`
	ZoneName string `xml:"ZoneName,attr"`
}

// Parse decodes a ZoneGroupState document into its groups.
func Parse(body []byte) ([]zoneGroup, error) {
	var state zoneGroupState
	if err := xml.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("topology: parse ZoneGroupState: %w", err)
	}
	return append(state.Groups, state.Wrapped...), nil
}

// RegistryMember is the minimal view of a registered device the resolver
// needs: its UDN and whether it is currently Running.
type RegistryMember struct {
	UDN     string
	Running bool
}

// Result is the outcome of resolving one device's group membership.
type Result struct {
	DisplayName string // zone name from the matching ZoneGroupMember, if found
	MasterUDN   string // "" means Master = self
	IsSelf      bool   // true when this device is its own group's coordinator
}

// Resolve walks groups in document order looking for selfUDN among the
// members. The first group containing a member matching selfUDN decides
// the outcome (tie-break: first match in document order wins):
//
//   - if self is also that group's Coordinator, Master = self;
//   - otherwise the registry is scanned for a Running device whose UDN
//     contains the Coordinator UUID substring; first match wins.
//
// If nothing matches, Master defaults to self. Resolve is a pure function;
// it performs no registry mutation.
func Resolve(selfUDN string, groups []zoneGroup, registry []RegistryMember) Result {
	selfUUID := uuidFromUDN(selfUDN)

	for _, group := range groups {
		for _, member := range group.Members {
			if member.UUID != selfUUID {
				continue
			}

			result := Result{DisplayName: member.ZoneName}

			if strings.EqualFold(member.UUID, group.Coordinator) {
				result.IsSelf = true
				return result
			}

			for _, candidate := range registry {
				if !candidate.Running {
					continue
				}
				if strings.Contains(candidate.UDN, group.Coordinator) {
					result.MasterUDN = candidate.UDN
					return result
				}
			}

			// Matched the group but found no running coordinator device;
			// default to self.
			result.IsSelf = true
			return result
		}
	}

	return Result{IsSelf: true}
}

func uuidFromUDN(udn string) string {
	return strings.TrimPrefix(udn, "uuid:")
}
