package auraflow

// Version is the release version, overridden at build time via -ldflags.
var Version = "0.1.0-dev"
