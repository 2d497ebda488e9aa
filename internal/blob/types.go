// Package blob is the entry point for report and artifact storage. It
// re-exports the driver contract and opens the configured driver.
package blob

import "aquamind/internal/blob/core"

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
)
