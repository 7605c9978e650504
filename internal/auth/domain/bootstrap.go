package domain

// BootstrapData seeds the first administrator on an empty user store.
type BootstrapData struct {
	AdminUsername string
	AdminPassword string
}
