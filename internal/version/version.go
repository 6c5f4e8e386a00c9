// ABOUTME: Version constants for the voxchat client
// ABOUTME: Reported in logs and user agent strings
package version

const (
	// Version is the client version
	Version = "0.1.0"

	// Product is the product name
	Product = "Voxchat"

	// Manufacturer identifies the project
	Manufacturer = "Voxchat"
)
