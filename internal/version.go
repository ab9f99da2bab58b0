// Package internal carries metadata shared by the binaries.
package internal

// Version is the application version, shown by --version.
const Version = "0.1.0"
