package envutil

import (
	"os"
	"strings"
)

// EnvVar selects the deployment environment
const EnvVar = "AUTHREDIRECT_ENV"

// IsDev reports whether we run in development mode, where cookies are issued
// without the Secure attribute so plain-http localhost works.
func IsDev() bool {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(EnvVar)))
	return env == "development" || env == "dev"
}
