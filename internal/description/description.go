// Package description walks a renderer's UPnP/AV-style device description
// document to build its service table, and probes a service's SCPD
// document for action presence at registration time.
package description

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// ServiceKind names one of the fixed service-table slots a RendererDevice
// keeps.
type ServiceKind int

const (
	KindAVTransport ServiceKind = iota
	KindRenderingControl
	KindConnectionManager
	KindGroupRenderingControl
	KindTopology
	numKinds
)

// serviceTypeBase maps the well-known service type prefix (before the
// trailing :<version>) to the table slot it fills.
var serviceTypeBase = map[ServiceKind]string{
	KindAVTransport:           "urn:schemas-upnp-org:service:AVTransport",
	KindRenderingControl:      "urn:schemas-upnp-org:service:RenderingControl",
	KindConnectionManager:     "urn:schemas-upnp-org:service:ConnectionManager",
	KindGroupRenderingControl: "urn:schemas-upnp-org:service:GroupRenderingControl",
	KindTopology:              "urn:schemas-tencent-com:service:ZoneGroupTopology",
}

// Service is a resolved entry in a device's service table.
type Service struct {
	Populated   bool
	Type        string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
}

// descDoc is the subset of a UPnP device description this walker cares
// about. No general-purpose device-description decoder exists anywhere in
// the retrieved corpus, so this is a plain encoding/xml target shaped to
// match the document, not a reused library type.
type descDoc struct {
	XMLName xml.Name `xml:"root"`
	URLBase string   `xml:"URLBase"`
	Device  struct {
		ServiceList []xmlServiceList `xml:"serviceList"`
	} `xml:"device"`
}

type xmlServiceList struct {
	Services []xmlService `xml:"service"`
}

type xmlService struct {
	ServiceType string `xml:"serviceType"`
	ServiceID   string `xml:"serviceId"`
	SCPDURL     string `xml:"SCPDURL"`
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
}

// Walk parses a device description document and resolves controlURL/
// eventSubURL for every recognized service kind against the document's
// URLBase (falling back to the fetch location when URLBase is absent). A
// single service's resolution failure only leaves that slot unpopulated;
// it never aborts the walk.
func Walk(body []byte, location string) (map[ServiceKind]Service, error) {
	var doc descDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("description: parse device description: %w", err)
	}

	base := doc.URLBase
	if base == "" {
		base = location
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("description: parse base URL %q: %w", base, err)
	}

	table := make(map[ServiceKind]Service, numKinds)

	for _, list := range doc.Device.ServiceList {
		for _, svc := range list.Services {
			kind, ok := classify(svc.ServiceType)
			if !ok {
				continue
			}
			resolved, err := resolve(svc, baseURL)
			if err != nil {
				// This single service fails to resolve; leave its slot
				// unpopulated and continue the walk.
				continue
			}
			table[kind] = resolved
		}
	}

	return table, nil
}

func classify(serviceType string) (ServiceKind, bool) {
	trimmed := trimVersion(serviceType)
	for kind, base := range serviceTypeBase {
		if trimmed == base {
			return kind, true
		}
	}
	return 0, false
}

// trimVersion strips the trailing ":<version>" suffix from a UPnP service
// or device type string.
func trimVersion(serviceType string) string {
	idx := strings.LastIndex(serviceType, ":")
	if idx < 0 {
		return serviceType
	}
	// Only strip if what follows looks like a version number.
	suffix := serviceType[idx+1:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return serviceType
		}
	}
	if suffix == "" {
		return serviceType
	}
	return serviceType[:idx]
}

func resolve(svc xmlService, base *url.URL) (Service, error) {
	control, err := resolveRef(base, svc.ControlURL)
	if err != nil {
		return Service{}, err
	}
	event, err := resolveRef(base, svc.EventSubURL)
	if err != nil {
		return Service{}, err
	}
	scpd, err := resolveRef(base, svc.SCPDURL)
	if err != nil {
		return Service{}, err
	}
	return Service{
		Populated:   true,
		Type:        svc.ServiceType,
		SCPDURL:     scpd,
		ControlURL:  control,
		EventSubURL: event,
	}, nil
}

func resolveRef(base *url.URL, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("description: parse URL %q: %w", ref, err)
	}
	return base.ResolveReference(parsed).String(), nil
}

// scpdDoc is the subset of an SCPD document needed for the action-presence
// probe.
type scpdDoc struct {
	ActionList *struct {
		Actions []struct {
			Name string `xml:"name"`
		} `xml:"action"`
	} `xml:"actionList"`
}

// HasAction parses an SCPD document body that the caller has already
// fetched, returning whether the named action is advertised (names compare
// case-insensitively). It does not fetch the document itself. A missing
// actionList element is tolerated and reported as "action absent" rather
// than an error.
func HasAction(scpdBody []byte, action string) (bool, error) {
	var doc scpdDoc
	if err := xml.Unmarshal(scpdBody, &doc); err != nil {
		return false, fmt.Errorf("description: parse SCPD: %w", err)
	}
	if doc.ActionList == nil {
		return false, nil
	}
	for _, a := range doc.ActionList.Actions {
		if strings.EqualFold(a.Name, action) {
			return true, nil
		}
	}
	return false, nil
}
