package tui

import (
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/studiowebux/discobrowse/internal/state"
	"github.com/studiowebux/discobrowse/internal/types"
)

const (
	highlightFormatter = "terminal256"
	highlightStyle     = "monokai"
)

// rawDocument is what the raw view shows: both payloads as received
type rawDocument struct {
	APIID    string                   `json:"api_id"`
	API      types.APIDescriptor      `json:"api_detail"`
	Endpoint types.EndpointDescriptor `json:"endpoint_detail"`
}

// renderRaw returns the snapshot as syntax highlighted JSON
func renderRaw(snap state.Snapshot) string {
	data, err := json.MarshalIndent(rawDocument{
		APIID:    snap.APIID,
		API:      snap.API,
		Endpoint: snap.Endpoint,
	}, "", "  ")
	if err != nil {
		return styleError.Render(err.Error())
	}
	return highlightJSON(string(data))
}

// highlightJSON colorizes src, falling back to plain text
func highlightJSON(src string) string {
	var sb strings.Builder
	if err := quick.Highlight(&sb, src, "json", highlightFormatter, highlightStyle); err != nil {
		return src
	}
	return sb.String()
}
