package domain

import "context"

// Geocoder resolves coordinates to a human-readable address through an external provider.
type Geocoder interface {
	// ReverseGeocode returns the provider's display name for the coordinates.
	// An absent display name yields "" with a nil error.
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// AddressResolver fronts a Geocoder, typically with a cache.
type AddressResolver interface {
	Resolve(ctx context.Context, lat, lon float64) (string, error)
}
