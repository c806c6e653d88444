//go:build debug

package build

// Debug reports whether this is a debug build. Build with -tags debug to
// enable debug-only features like --fake-scan.
const Debug = true
