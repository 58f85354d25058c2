package model

import "strings"

// UIResourceMIMEType marks a UIResource blob as a raw HTML snippet.
const UIResourceMIMEType = "text/html"

// UIResource is a rendered HTML artifact cached for retrieval by URI.
// Blob holds the base64-encoded HTML.
type UIResource struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	Blob     string `json:"blob"`
}

// Name derives a display name from the last path segment of the URI.
func (r UIResource) Name() string {
	uri := strings.TrimRight(r.URI, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
