package httpclient

import (
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var binaryMediaTypes = map[string]struct{}{
	"application/zip":              {},
	"application/pdf":              {},
	"application/octet-stream":     {},
	"application/msword":           {},
	"application/gzip":             {},
	"application/x-rar-compressed": {},
}

const ooxmlMediaPrefix = "application/vnd.openxmlformats-officedocument."

// isBinaryContent decides whether a response body should be treated as an
// opaque byte payload. Content type wins; an attachment disposition or a
// typeless body that is not valid UTF-8 also counts as binary.
func isBinaryContent(contentType, contentDisposition string, body []byte) bool {
	mediaType := ""
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = parsed
		} else {
			mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		}
	}

	if _, ok := binaryMediaTypes[mediaType]; ok {
		return true
	}
	for _, prefix := range []string{"image/", "audio/", "video/"} {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	if strings.HasPrefix(mediaType, ooxmlMediaPrefix) {
		return true
	}

	if contentDisposition != "" {
		if disposition, _, err := mime.ParseMediaType(contentDisposition); err == nil && disposition == "attachment" {
			return true
		}
	}

	if mediaType == "" && len(body) > 0 && !utf8.Valid(body) {
		return true
	}
	return false
}

// decodeText renders a text body using the charset parameter of the
// content type. UTF-8 is the default; ISO-8859-1 and its latin1 alias are
// decoded explicitly, anything else falls back to a raw UTF-8 view.
func decodeText(body []byte, contentType string) string {
	charset := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			charset = strings.ToLower(params["charset"])
		}
	}

	switch charset {
	case "iso-8859-1", "latin1", "latin-1":
		if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body); err == nil {
			return string(decoded)
		}
		return string(body)
	default:
		return string(body)
	}
}
