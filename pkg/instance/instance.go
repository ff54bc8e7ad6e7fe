package instance

import (
	"os"

	"github.com/abhishekY2401/product-service/pkg/env"
)

// GetID names this process for lock ownership and log fields. It prefers
// PRODUCTSVC_INSTANCE_ID, then the hostname.
func GetID() string {
	if id, ok := env.Lookup("INSTANCE_ID"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "product-service-0"
}
