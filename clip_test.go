/*
Copyright © 2022 the covidsat authors.
This file is part of covidsat.

covidsat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

covidsat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with covidsat.  If not, see <http://www.gnu.org/licenses/>.
*/


package covidsat

import (
	"errors"
	"testing"

	"github.com/ctessum/geom"
)

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

func TestClip(t *testing.T) {
	r := constRaster(4, 4, 0, 4, 1)
	r.Tags["source"] = "test"
	aoi := &AOI{Polygons: []geom.Polygonal{square(0.9, 0.9, 2.1, 2.1)}}

	tests := []struct {
		name      string
		opts      ClipOptions
		nx, ny    int
		valid     int
		transform GeoTransform
	}{
		{name: "all touched crop", opts: ClipOptions{AllTouched: true, Crop: true},
			nx: 3, ny: 3, valid: 9, transform: NewGeoTransform(0, 3, 1, 1)},
		{name: "all touched", opts: ClipOptions{AllTouched: true},
			nx: 4, ny: 4, valid: 9, transform: r.Transform},
		{name: "centers crop", opts: ClipOptions{Crop: true},
			nx: 3, ny: 3, valid: 1, transform: NewGeoTransform(0, 3, 1, 1)},
		{name: "centers", opts: ClipOptions{},
			nx: 4, ny: 4, valid: 1, transform: r.Transform},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := Clip(r, aoi, test.opts)
			if err != nil {
				t.Fatal(err)
			}
			if c.Nx() != test.nx || c.Ny() != test.ny {
				t.Errorf("shape: have %dx%d, want %dx%d", c.Ny(), c.Nx(), test.ny, test.nx)
			}
			if c.ValidCount() != test.valid {
				t.Errorf("valid pixels: have %d, want %d", c.ValidCount(), test.valid)
			}
			if c.Transform != test.transform {
				t.Errorf("transform: have %v, want %v", c.Transform, test.transform)
			}
			if c.Tags["source"] != "test" {
				t.Error("tags not copied")
			}
		})
	}

	t.Run("center pixel", func(t *testing.T) {
		c, err := Clip(r, aoi, ClipOptions{Crop: true})
		if err != nil {
			t.Fatal(err)
		}
		if !c.Valid(1, 1) {
			t.Error("pixel containing the AOI center was dropped")
		}
	})

	t.Run("input unchanged", func(t *testing.T) {
		if r.ValidCount() != 16 {
			t.Errorf("input has %d valid pixels", r.ValidCount())
		}
	})

	t.Run("triangle", func(t *testing.T) {
		// The bounding box covers the whole raster, so the crop window
		// keeps every pixel and the polygon alone decides validity.
		tri := &AOI{Polygons: []geom.Polygonal{geom.Polygon{{{X: 0, Y: 0}, {X: 4.2, Y: 0}, {X: 0, Y: 4.2}, {X: 0, Y: 0}}}}}
		for _, test := range []struct {
			allTouched bool
			valid      int
		}{
			{allTouched: false, valid: 10},
			{allTouched: true, valid: 13},
		} {
			c, err := Clip(r, tri, ClipOptions{AllTouched: test.allTouched, Crop: true})
			if err != nil {
				t.Fatal(err)
			}
			if c.Nx() != 4 || c.Ny() != 4 {
				t.Fatalf("shape: %dx%d", c.Ny(), c.Nx())
			}
			if c.ValidCount() != test.valid {
				t.Errorf("all touched %v: valid pixels: have %d, want %d", test.allTouched, c.ValidCount(), test.valid)
			}
			for _, p := range [][2]int{{0, 2}, {0, 3}, {1, 3}} {
				if c.Valid(p[0], p[1]) {
					t.Errorf("all touched %v: pixel %v outside the triangle is valid", test.allTouched, p)
				}
			}
			if !c.Valid(3, 0) || !c.Valid(2, 2) {
				t.Errorf("all touched %v: pixels inside the triangle were dropped", test.allTouched)
			}
			if c.Valid(0, 1) != test.allTouched {
				t.Errorf("all touched %v: pixel (0, 1) crossed by the edge: valid %v", test.allTouched, c.Valid(0, 1))
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := Clip(r, &AOI{}, DefaultClipOptions); !errors.Is(err, ErrEmptyAOI) {
			t.Errorf("error: %v", err)
		}
	})

	t.Run("no overlap", func(t *testing.T) {
		far := &AOI{Polygons: []geom.Polygonal{square(10, 10, 11, 11)}}
		if _, err := Clip(r, far, DefaultClipOptions); !errors.Is(err, ErrNoOverlap) {
			t.Errorf("error: %v", err)
		}
	})
}
