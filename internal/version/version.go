// ABOUTME: Version and product identification
// ABOUTME: Shared by resonate-out and resonate-devices
package version

const (
	Version      = "0.3.0"
	Product      = "Resonate Out"
	Manufacturer = "Resonate Protocol"
)
