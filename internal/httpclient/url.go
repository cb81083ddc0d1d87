package httpclient

import (
	"net/url"
	"strings"
)

// BuildURL joins a base URL and an endpoint path with exactly one slash
// between them. Scheme and authority always come from the base URL.
func BuildURL(baseURL, path string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// AppendQuery encodes params onto rawURL with standard form encoding.
// Keys are emitted in sorted order so the result is deterministic.
func AppendQuery(rawURL string, params map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	encoded := values.Encode()

	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + encoded
	}
	return rawURL + "?" + encoded
}

// MergeStringMaps overlays the given maps with later maps winning. Keys an
// upper layer dropped (an unresolved optional placeholder, for instance)
// simply never shadow the layer below. A nil result means no layer
// contributed anything.
func MergeStringMaps(layers ...map[string]string) map[string]string {
	var merged map[string]string
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		if merged == nil {
			merged = map[string]string{}
		}
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}
