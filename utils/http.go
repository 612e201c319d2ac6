package utils

import (
	"net"
	"net/http"
	"path/filepath"
	"strings"
)

// ClientIP returns the request's client address without the port. The RealIP
// middleware has already folded proxy headers into RemoteAddr, which may
// then be a bare IP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// documentExts are the upload formats served with an attachment disposition.
var documentExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".epub": true,
}

// IsDocumentFormat reports whether filename ends in a document format.
func IsDocumentFormat(filename string) bool {
	return documentExts[strings.ToLower(filepath.Ext(filename))]
}

// AttachmentDisposition builds a Content-Disposition value. The filename is
// escaped for quoting: \ and " are backslash-escaped.
func AttachmentDisposition(filename string) string {
	safe := strings.ReplaceAll(filename, "\\", "\\\\")
	safe = strings.ReplaceAll(safe, "\"", "\\\"")
	return `attachment; filename="` + safe + `"`
}
