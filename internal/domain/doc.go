// Package domain models citizen hazard reports and the rules that govern them.
//
// # Reports
//
// A report is a geotagged hazard (flood, fire, fallen tree, ...) submitted by an
// authenticated user. Coordinates are WGS-84 decimal degrees and are required:
// latitude in [-90, 90], longitude in [-180, 180]. The date defaults to the
// submission time when the caller omits it.
//
// Ownership:
//
//	The owner id is always the authenticated caller's id, set by the service on
//	create and never read from the payload. It is immutable. Updates and deletes
//	are scoped to (id, owner); a miss on either yields ErrNotFound, so a caller
//	cannot tell "does not exist" from "belongs to someone else".
//
// Address provenance:
//
//	The address is either user-supplied or derived from the coordinates by
//	reverse geocoding. See [NeedsGeocoding] for the rule applied on every write:
//
//	  create: resolve when the address is blank
//	  update: resolve when the address is blank, or latitude or longitude changed
//
//	Under the default fail-open geocoding policy a provider failure leaves the
//	address empty and the write still succeeds.
//
// # Distances
//
// Nearby queries use great-circle distance on a spherical Earth of radius
// [EarthRadiusKm], computed with S2 (see [DistanceKm]).
package domain
