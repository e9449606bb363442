// Package control is the controller-facing glue: it translates transport
// commands into renderer SOAP actions and exposes group-volume
// computation. The SOAP envelope itself — the generic collaborator
// spec.md lists as out of scope — is written from a string template around
// action arguments marshalled as soap.Arg values, and responses are parsed
// with the ecosystem UPnP/SOAP library's soap.Envelope.
package control

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anacrolix/dms/soap"
	"github.com/anacrolix/dms/upnp"
)

// Client issues SOAP actions against a renderer's control URL.
type Client struct {
	HTTP *http.Client
}

// NewClient builds a Client with a bounded per-call timeout; the bridge
// never blocks indefinitely on an unresponsive renderer.
func NewClient() *Client {
	return &Client{HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// responseArg is one generic name/value pair extracted from a SOAP action
// response, since the set of returned argument names varies per action and
// is not worth a struct per action here.
type responseArg struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type actionResponseBody struct {
	Args []responseArg `xml:",any"`
}

// Invoke issues one SOAP action against controlURL and returns the
// response arguments as a name->value map. A non-2xx HTTP response or a
// UPnPError SOAP fault is surfaced as a *upnp.Error via upnp.ConvertError's
// counterpart, upnp.Errorf.
func (c *Client) Invoke(ctx context.Context, controlURL, serviceType, action string, args []soap.Arg) (map[string]string, error) {
	urn, err := upnp.ParseServiceType(serviceType)
	if err != nil {
		return nil, fmt.Errorf("control: parse service type %q: %w", serviceType, err)
	}
	sa := upnp.SoapAction{Type: serviceType, Action: action, ServiceURN: urn}

	argsXML, err := xml.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("control: marshal action args: %w", err)
	}

	actionXML := fmt.Sprintf(`<u:%[1]s xmlns:u="%[2]s">%[3]s</u:%[1]s>`, action, sa.ServiceURN.String(), argsXML)
	envelope := fmt.Sprintf(
		`<?xml version="1.0" encoding="utf-8"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>%s</s:Body></s:Envelope>`,
		actionXML,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("control: build SOAP request: %w", err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf("%q", serviceType+"#"+action))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control: SOAP call %s#%s: %w", serviceType, action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("control: read SOAP response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upnp.Errorf(upnp.ActionFailedErrorCode, "SOAP fault from %s#%s: %s", serviceType, action, string(respBody))
	}

	var env soap.Envelope
	if err := xml.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("control: parse SOAP envelope: %w", err)
	}

	var body actionResponseBody
	if err := xml.Unmarshal(env.Body.Action, &body); err != nil {
		return nil, fmt.Errorf("control: parse action response: %w", err)
	}

	out := make(map[string]string, len(body.Args))
	for _, a := range body.Args {
		out[a.XMLName.Local] = a.Value
	}
	return out, nil
}

func arg(name, value string) soap.Arg {
	return soap.Arg{XMLName: xml.Name{Local: name}, Value: value}
}
