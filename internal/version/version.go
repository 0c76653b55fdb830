package version

// Version is the current release, overridable at build time via -ldflags.
var Version = "0.3.0"
