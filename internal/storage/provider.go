package storage

import "brandgen/internal/ports"

// Provider is the storage contract used by the API.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
