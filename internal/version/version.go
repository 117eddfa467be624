// Package version reports the build version.
package version

// Version is set at build time with
// -ldflags "-X github.com/spetersoncode/answer/internal/version.Version=v1.2.3".
var Version = "0.1.0"

// UserAgent returns the User-Agent sent to upstream backends.
func UserAgent() string {
	return "answer/" + Version
}
