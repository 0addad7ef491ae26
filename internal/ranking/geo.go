package ranking

import "math"

const earthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance between two points in kilometers.
func HaversineKm(from, to Location) float64 {
	dLat := toRad(to.Latitude - from.Latitude)
	dLon := toRad(to.Longitude - from.Longitude)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(from.Latitude))*math.Cos(toRad(to.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// distanceFor returns the store's precomputed distance, or the haversine
// distance when the requester supplied a location.
func distanceFor(store *Store, from *Location) float64 {
	if from == nil {
		return store.DistanceKm
	}
	return HaversineKm(*from, store.Location)
}
