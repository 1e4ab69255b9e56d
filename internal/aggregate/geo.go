package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/gyeh/aihstats/internal/model"
)

// GeoOptions controls GeoPoints.
type GeoOptions struct {
	GroupByMunicipality bool
	MinRadius           float64
	MaxRadius           float64
}

// DefaultGeoOptions groups by municipality with a 3..25 radius range.
func DefaultGeoOptions() GeoOptions {
	return GeoOptions{GroupByMunicipality: true, MinRadius: 3, MaxRadius: 25}
}

// GeoPoint is a located value with a derived marker radius.
type GeoPoint struct {
	Label     string          `json:"label"`
	Code      string          `json:"code"`
	Latitude  float64         `json:"lat"`
	Longitude float64         `json:"lon"`
	Value     decimal.Decimal `json:"value"`
	Radius    float64         `json:"radius"`
}

// GeoPoints keeps the records with coordinates, optionally sums them per
// municipality, and scales each point's radius linearly between MinRadius and
// MaxRadius by its share of the largest value. Grouped points are ordered by
// value descending; per-record points keep input order.
func GeoPoints(records []model.Record, opts GeoOptions) []GeoPoint {
	points := []GeoPoint{}
	index := make(map[string]int)
	for i := range records {
		r := &records[i]
		if !r.HasCoordinates() {
			continue
		}
		if !opts.GroupByMunicipality {
			points = append(points, GeoPoint{
				Label:     r.Municipality,
				Code:      r.MunicipalityCode,
				Latitude:  *r.Latitude,
				Longitude: *r.Longitude,
				Value:     r.Value,
			})
			continue
		}
		key := r.MunicipalityCode
		if key == "" {
			key = r.Municipality
		}
		j, ok := index[key]
		if !ok {
			j = len(points)
			index[key] = j
			points = append(points, GeoPoint{
				Label:     r.Municipality,
				Code:      r.MunicipalityCode,
				Latitude:  *r.Latitude,
				Longitude: *r.Longitude,
				Value:     decimal.Zero,
			})
		}
		points[j].Value = points[j].Value.Add(r.Value)
	}

	if opts.GroupByMunicipality {
		sort.SliceStable(points, func(i, j int) bool {
			if c := points[i].Value.Cmp(points[j].Value); c != 0 {
				return c > 0
			}
			return points[i].Label < points[j].Label
		})
	}

	peak := decimal.Zero
	for _, p := range points {
		if p.Value.GreaterThan(peak) {
			peak = p.Value
		}
	}
	for i := range points {
		points[i].Radius = radius(points[i].Value, peak, opts.MinRadius, opts.MaxRadius)
	}
	return points
}

func radius(v, peak decimal.Decimal, lo, hi float64) float64 {
	if !peak.IsPositive() {
		return lo
	}
	ratio := v.Div(peak).InexactFloat64()
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return lo + (hi-lo)*ratio
}

// HeatMap returns [lat, lon, weight] triples for a weighted heat layer.
func HeatMap(points []GeoPoint) [][3]float64 {
	out := make([][3]float64, len(points))
	for i, p := range points {
		out[i] = [3]float64{p.Latitude, p.Longitude, p.Value.InexactFloat64()}
	}
	return out
}

// Viewport is a map center and zoom level fitted to a set of points.
type Viewport struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      int     `json:"zoom"`
}

// MapViewport centers on the mean coordinate and picks a zoom from the
// widest lat/lon spread. ok is false for an empty point set.
func MapViewport(points []GeoPoint) (Viewport, bool) {
	if len(points) == 0 {
		return Viewport{}, false
	}
	minLat, maxLat := points[0].Latitude, points[0].Latitude
	minLon, maxLon := points[0].Longitude, points[0].Longitude
	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLon += p.Longitude
		minLat, maxLat = min(minLat, p.Latitude), max(maxLat, p.Latitude)
		minLon, maxLon = min(minLon, p.Longitude), max(maxLon, p.Longitude)
	}
	n := float64(len(points))
	spread := max(maxLat-minLat, maxLon-minLon)

	zoom := 9
	switch {
	case spread > 10:
		zoom = 5
	case spread > 5:
		zoom = 6
	case spread > 2:
		zoom = 7
	case spread > 1:
		zoom = 8
	}
	return Viewport{CenterLat: sumLat / n, CenterLon: sumLon / n, Zoom: zoom}, true
}

// RecordViewport fits the viewport to every located record rather than to
// grouped points, so a municipality with many records pulls the center
// toward itself.
func RecordViewport(records []model.Record) (Viewport, bool) {
	var located []GeoPoint
	for i := range records {
		r := &records[i]
		if r.HasCoordinates() {
			located = append(located, GeoPoint{Latitude: *r.Latitude, Longitude: *r.Longitude})
		}
	}
	return MapViewport(located)
}
