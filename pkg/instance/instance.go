package instance

import (
	"os"
	"strings"
)

var idEnvVars = []string{"STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID identifies the running process in logs and lock ownership.
func GetID() string {
	for _, key := range idEnvVars {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
