// Package capability negotiates between a renderer's advertised sink
// capabilities and the controller's codec list, producing the MIME type
// and DLNA feature descriptor used to serve a given track.
package capability

import (
	"fmt"
	"strings"

	"github.com/anacrolix/dms/dlna"
)

// Set is the renderer's advertised sink capability set: an ordered list of
// accepted MIME types, plus a match-all flag when the sink advertises
// http-get:*:*: or http-get:::.
type Set struct {
	MIMEs    []string
	MatchAll bool

	entries []string // full http-get audio entries, extras included
}

// ParseProtocolInfo parses a comma-separated ProtocolInfo sink string
// (entries of the form protocol:network:mime:extras) into a Set. Only
// http-get entries whose MIME starts with "audio/" contribute; forced
// unconditionally appends MIME types regardless of what the sink advertised.
func ParseProtocolInfo(info string, forced []string) Set {
	var set Set

	for _, raw := range strings.Split(info, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "http-get:*:*:") || strings.Contains(entry, "http-get:::") {
			set.MatchAll = true
		}
		fields := strings.SplitN(entry, ":", 4)
		if len(fields) < 3 || fields[0] != "http-get" {
			continue
		}
		mime := fields[2]
		if strings.HasPrefix(mime, "audio/") {
			set.MIMEs = append(set.MIMEs, mime)
			set.entries = append(set.entries, entry)
		}
	}

	set.MIMEs = append(set.MIMEs, forced...)
	return set
}

// accept describes one codec token's acceptance rule: the sink is considered
// to support the token if any of its MIME substrings appears in the sink's
// advertised (or forced) MIME list, and, when Details is non-empty, the
// sink's corresponding entry also contains that substring.
type accept struct {
	token   string
	accepts []string
	details string
}

// codecTable mirrors the fixed mapping in the renderer-capability walker:
// token -> accepted MIME substrings (either audio/X or audio/x-X), with an
// optional "details" substring that must also be present in the sink entry.
var codecTable = []accept{
	{token: "mp3", accepts: []string{"mp3", "mpeg"}},
	{token: "flc", accepts: []string{"flac"}},
	{token: "wma", accepts: []string{"wma"}},
	{token: "ogg", accepts: []string{"ogg"}},
	{token: "ops", accepts: []string{"ogg"}, details: "codecs=opus"},
	{token: "ogf", accepts: []string{"ogg"}, details: "codecs=flac"},
	{token: "aac", accepts: []string{"aac", "m4a", "mp4"}},
	{token: "alc", accepts: []string{"m4a", "mp4"}},
	{token: "pcm", accepts: []string{"wav", "audio/L"}},
	{token: "wav", accepts: []string{"wav", "audio/L"}},
	{token: "aif", accepts: []string{"aif", "wav", "audio/L"}},
	{token: "dsf", accepts: []string{"dsf", "dsd"}},
	{token: "dff", accepts: []string{"dff", "dsd"}},
}

func lookup(token string) (accept, bool) {
	for _, a := range codecTable {
		if a.token == token {
			return a, true
		}
	}
	return accept{}, false
}

// sinkHas reports whether any sink MIME entry contains substr (case
// sensitive, matching the original string-search semantics), trying both
// the bare form and the "audio/x-" vendor-prefixed form.
func sinkHas(mimes []string, substr string) bool {
	candidates := []string{"audio/" + substr, "audio/x-" + substr}
	if strings.HasPrefix(substr, "audio/") {
		candidates = []string{substr}
	}
	for _, mime := range mimes {
		for _, c := range candidates {
			if strings.Contains(mime, c) {
				return true
			}
		}
	}
	return false
}

// Supported reports whether the sink set supports the given codec token,
// checking the forced list as a second, independent pool of acceptance.
func Supported(set Set, forced []string, token string) bool {
	a, ok := lookup(token)
	if !ok {
		return false
	}
	if set.MatchAll {
		return true
	}
	for _, candidate := range a.accepts {
		if sinkHas(set.MIMEs, candidate) {
			if a.details == "" || sinkContainsDetails(set.entries, candidate, a.details) {
				return true
			}
		}
		if sinkHas(forced, candidate) {
			return true
		}
	}
	return false
}

// sinkContainsDetails checks that a sink entry matching candidate's MIME
// also advertises the required details substring (e.g. codecs=opus).
func sinkContainsDetails(mimes []string, candidate, details string) bool {
	full := []string{"audio/" + candidate, "audio/x-" + candidate}
	for _, mime := range mimes {
		for _, c := range full {
			if strings.Contains(mime, c) && strings.Contains(mime, details) {
				return true
			}
		}
	}
	return false
}

// Negotiate walks the controller's codec list in order and returns the
// subset the sink supports, preserving the controller's ordering.
func Negotiate(set Set, forced []string, controllerCodecs []string) []string {
	var out []string
	for _, token := range controllerCodecs {
		if Supported(set, forced, token) {
			out = append(out, token)
		}
	}
	return out
}

// mimeForToken maps a negotiated codec token to the concrete MIME type
// advertised to the renderer in the stream's Content-Type.
var mimeForToken = map[string]string{
	"mp3": "audio/mpeg",
	"flc": "audio/flac",
	"wma": "audio/x-ms-wma",
	"ogg": "audio/ogg",
	"ops": "audio/ogg",
	"ogf": "audio/ogg",
	"aac": "audio/aac",
	"alc": "audio/mp4",
	"pcm": "audio/L16",
	"wav": "audio/wav",
	"aif": "audio/aiff",
	"dsf": "audio/dsf",
	"dff": "audio/dff",
}

// MIMEFor returns the Content-Type to use for a negotiated codec token.
func MIMEFor(token string) (string, error) {
	m, ok := mimeForToken[token]
	if !ok {
		return "", fmt.Errorf("capability: unknown codec token %q", token)
	}
	return m, nil
}

// FeatureString builds the contentFeatures.dlna.org descriptor for a track.
// haveDuration sets the time-seek flag; a track of unknown duration (a live
// stream) gets none. The mime argument is not consulted: every MIME type
// gets the same descriptor, with no DLNA profile name.
func FeatureString(mime string, haveDuration bool) string {
	cf := dlna.ContentFeatures{
		SupportTimeSeek: haveDuration,
	}
	return cf.String()
}

// ContentFeaturesDomain is the header name for the negotiated DLNA feature
// descriptor, re-exported from the DLNA domain constants.
const ContentFeaturesDomain = dlna.ContentFeaturesDomain

// TransferModeDomain is the header name mirrored verbatim from the request.
const TransferModeDomain = dlna.TransferModeDomain
