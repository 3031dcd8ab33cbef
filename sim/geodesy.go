package sim

import "math"

// EarthRadius is the mean Earth radius in meters used for all geodesic math.
const EarthRadius = 6370972.0

// MaxLatitude bounds particle latitudes away from the projection
// singularities at the poles (the Web Mercator limit).
const MaxLatitude = 85.051129

// metersPerDegree is the ground distance of one degree of latitude.
const metersPerDegree = EarthRadius * math.Pi / 180

// Bounds is a geographic extent [minLon, minLat, maxLon, maxLat] in degrees.
type Bounds struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// GlobalBounds covers the whole globe.
var GlobalBounds = Bounds{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}

// ClampLat returns b with latitudes clamped to the Web Mercator range.
func (b Bounds) ClampLat() Bounds {
	b.MinLat = math.Max(b.MinLat, -MaxLatitude)
	b.MaxLat = math.Min(b.MaxLat, MaxLatitude)
	return b
}

// Contains reports whether (lon, lat) lies inside b.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Intersect returns the overlap of b and o. The result may be degenerate
// when the extents are disjoint; callers should check Empty.
func (b Bounds) Intersect(o Bounds) Bounds {
	return Bounds{
		MinLon: math.Max(b.MinLon, o.MinLon),
		MinLat: math.Max(b.MinLat, o.MinLat),
		MaxLon: math.Min(b.MaxLon, o.MaxLon),
		MaxLat: math.Min(b.MaxLat, o.MaxLat),
	}
}

// Empty reports whether b encloses no area.
func (b Bounds) Empty() bool {
	return b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat
}

// Viewport is a per-frame, read-only snapshot of the host's camera state.
// The host supplies Unproject and Bounds; the simulation never writes back.
type Viewport struct {
	Lon, Lat         float64 // camera center, degrees
	Zoom             float64 // web-map zoom level
	Width, Height    float64 // canvas size in CSS pixels
	DevicePixelRatio float64
	Spherical        bool // globe/perspective projection in effect
	Bounds           Bounds

	// Unproject maps screen coordinates to geographic coordinates.
	// ok is false where the screen point misses the globe.
	Unproject func(x, y float64) (lon, lat float64, ok bool)
}

// Haversine returns the great-circle distance in meters between two
// geographic points given in degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}

// SphereRadius estimates the visible sphere radius in meters by unprojecting
// three probe points (canvas center, half-width right of it, half-height
// below it) and taking the farthest great-circle distance from the camera
// center. Probes that miss the globe are skipped.
func (v *Viewport) SphereRadius() float64 {
	if v.Unproject == nil {
		return 0
	}
	cx := v.Width / 2
	cy := v.Height / 2
	probes := [3][2]float64{
		{cx, cy},
		{cx + cx, cy},
		{cx, cy + cy},
	}

	radius := 0.0
	for _, p := range probes {
		lon, lat, ok := v.Unproject(p[0], p[1])
		if !ok {
			continue
		}
		if d := Haversine(v.Lon, v.Lat, lon, lat); d > radius {
			radius = d
		}
	}
	return radius
}

// SpeedScale compensates the configured speed factor for zoom level and
// pixel density. Ground distance per screen pixel halves with every zoom
// step in standard web-map tiling, so the scale follows 1/2^zoom.
func SpeedScale(speedFactor, devicePixelRatio, zoom float64) float64 {
	return speedFactor * devicePixelRatio / math.Exp2(zoom)
}
