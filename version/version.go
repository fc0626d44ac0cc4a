package version

var (
	// Set with -ldflags "-X github.com/AvaProtocol/ap-atlas/version.semver=..." on release builds.
	semver   = "0.1.0"
	revision = "unknown"
)

func Get() string {
	return semver
}

func Commit() string {
	return revision
}
