package env

import (
	"os"
	"strings"
)

// Prefix namespaces every service variable.
const Prefix = "PRODUCTSVC_"

// Get returns PRODUCTSVC_<key>, then the bare key, then fallback.
func Get(key, fallback string) string {
	if val, ok := Lookup(key); ok {
		return val
	}
	return fallback
}

// Lookup is Get without a fallback. Blank values count as unset.
func Lookup(key string) (string, bool) {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val, true
		}
	}
	return "", false
}
