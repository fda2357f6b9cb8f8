// ABOUTME: Build identity constants
// ABOUTME: Shared by the hub and participant binaries
package version

const (
	// Version is the current release version
	Version = "0.1.0"

	// Product is the product name reported at handshake
	Product = "Cuecast"

	// Manufacturer identifies the project
	Manufacturer = "Cuecast Project"
)
