//go:build !debug

package build

// Debug reports whether this is a debug build. Debug-only features like
// --fake-scan are rejected in release builds.
const Debug = false
