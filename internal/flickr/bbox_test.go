package flickr

import (
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestBoundingBox(t *testing.T) {
	tests := []struct {
		name                  string
		lat, lon              float64
		halfWidth, halfHeight float64
		want                  string
	}{
		{
			name: "san francisco",
			lat:  37.7749, lon: -122.4194,
			halfWidth: 0.25, halfHeight: 0.25,
			want: "-122.6694,37.5249,-122.1694,38.0249",
		},
		{
			name: "origin",
			lat:  0, lon: 0,
			halfWidth: 1, halfHeight: 1,
			want: "-1,-1,1,1",
		},
		{
			name: "clamped at north pole and antimeridian",
			lat:  89.9, lon: 179.9,
			halfWidth: 0.5, halfHeight: 0.5,
			want: "179.4,89.4,180,90",
		},
		{
			name: "clamped at south pole",
			lat:  -90, lon: -180,
			halfWidth: 0.25, halfHeight: 0.25,
			want: "-180,-90,-179.75,-89.75",
		},
		{
			name: "nan latitude",
			lat:  math.NaN(), lon: 10,
			halfWidth: 0.25, halfHeight: 0.25,
			want: "0,0,0,0",
		},
		{
			name: "infinite longitude",
			lat:  10, lon: math.Inf(1),
			halfWidth: 0.25, halfHeight: 0.25,
			want: "0,0,0,0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoundingBox(tt.lat, tt.lon, tt.halfWidth, tt.halfHeight)
			if got != tt.want {
				t.Errorf("BoundingBox() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoundingBox_ContainsCoordinate(t *testing.T) {
	for lat := -90.0; lat <= 90; lat += 7.5 {
		for lon := -180.0; lon <= 180; lon += 15 {
			parts := strings.Split(BoundingBox(lat, lon, DefaultHalfWidth, DefaultHalfHeight), ",")
			if len(parts) != 4 {
				t.Fatalf("BoundingBox(%v, %v) has %d parts", lat, lon, len(parts))
			}
			v := make([]float64, 4)
			for i, p := range parts {
				f, err := strconv.ParseFloat(p, 64)
				if err != nil {
					t.Fatalf("part %q: %v", p, err)
				}
				v[i] = f
			}
			minLon, minLat, maxLon, maxLat := v[0], v[1], v[2], v[3]
			if !(minLat <= lat && lat <= maxLat && minLon <= lon && lon <= maxLon) {
				t.Errorf("(%v, %v) outside box %v", lat, lon, v)
			}
			if minLat < -90 || maxLat > 90 || minLon < -180 || maxLon > 180 {
				t.Errorf("box %v outside global range", v)
			}
		}
	}
}

func TestBoundingBoxFromStrings(t *testing.T) {
	tests := []struct {
		lat, lon string
		want     string
	}{
		{"37.7749", "-122.4194", "-122.6694,37.5249,-122.1694,38.0249"},
		{"abc", "10", "0,0,0,0"},
		{"10", "", "0,0,0,0"},
		{"", "", "0,0,0,0"},
	}

	for _, tt := range tests {
		t.Run(tt.lat+"/"+tt.lon, func(t *testing.T) {
			if got := BoundingBoxFromStrings(tt.lat, tt.lon); got != tt.want {
				t.Errorf("BoundingBoxFromStrings(%q, %q) = %q, want %q", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}
