package httpclient

import (
	"fmt"
	"runtime"
)

// UserAgent constructs a user-agent string that complies with Wikimedia's
// robot policy, which also serves well for the other upstreams.
// Format: <client name>/<version> (<contact information>) <library>/<version>
func UserAgent(appName, appVersion, contact string) string {
	if appVersion == "" {
		appVersion = "unknown"
	}
	return fmt.Sprintf("%s/%s (%s) Go-HTTP-Client/%s",
		appName, appVersion, contact, runtime.Version())
}
