// Package version exposes build metadata of the querybridge binary.
//
// Values are injected with ldflags:
//
//	go build -ldflags "\
//	  -X github.com/ncobase/querybridge/version.Version=1.2.3 \
//	  -X github.com/ncobase/querybridge/version.Revision=abc123 \
//	  -X 'github.com/ncobase/querybridge/version.BuiltAt=$(date)'" ./cmd/querybridge
//
// Unset values fall back to the VCS stamp the Go toolchain embeds.
package version
