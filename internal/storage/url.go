package storage

import "strings"

// DefaultPublicHost serves public object URLs when no host is configured.
const DefaultPublicHost = "storage.googleapis.com"

// gsScheme is the storage-scheme prefix used by the generation provider
// in operation results.
const gsScheme = "gs://"

// NormalizeURI rewrites a storage-scheme URI of the form gs://bucket/key
// to a fetchable HTTPS URL on the given public host. Any URI not using
// the storage scheme is returned unchanged.
func NormalizeURI(uri, publicHost string) string {
	if !strings.HasPrefix(uri, gsScheme) {
		return uri
	}
	if publicHost == "" {
		publicHost = DefaultPublicHost
	}
	return "https://" + publicHost + "/" + strings.TrimPrefix(uri, gsScheme)
}
