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
	"math"
	"testing"
)

func TestMosaic(t *testing.T) {
	t.Run("adjacent", func(t *testing.T) {
		m, err := Mosaic(MergeFirst, constRaster(10, 10, 0, 10, 5), constRaster(10, 10, 10, 10, 7))
		if err != nil {
			t.Fatal(err)
		}
		if m.Nx() != 20 || m.Ny() != 10 {
			t.Fatalf("shape %dx%d", m.Ny(), m.Nx())
		}
		if m.Transform != NewGeoTransform(0, 10, 1, 1) {
			t.Errorf("transform: %v", m.Transform)
		}
		if m.Get(3, 9) != 5 || m.Get(3, 10) != 7 || m.ValidCount() != 200 {
			t.Errorf("values: %g %g, %d valid", m.Get(3, 9), m.Get(3, 10), m.ValidCount())
		}
	})

	for _, test := range []struct {
		rule MergeRule
		want float64
	}{
		{rule: MergeFirst, want: 5},
		{rule: MergeLast, want: 7},
	} {
		t.Run("overlap "+test.rule.String(), func(t *testing.T) {
			m, err := Mosaic(test.rule, constRaster(10, 10, 0, 10, 5), constRaster(10, 10, 5, 10, 7))
			if err != nil {
				t.Fatal(err)
			}
			if m.Nx() != 15 {
				t.Fatalf("width %d", m.Nx())
			}
			if have := m.Get(0, 7); have != test.want {
				t.Errorf("overlap pixel: have %g, want %g", have, test.want)
			}
			if m.Get(0, 2) != 5 || m.Get(0, 12) != 7 {
				t.Error("pixels outside the overlap changed")
			}
		})
	}

	t.Run("no-data does not overwrite", func(t *testing.T) {
		b := constRaster(10, 10, 5, 10, 7)
		b.Set(math.NaN(), 0, 2)
		m, err := Mosaic(MergeLast, constRaster(10, 10, 0, 10, 5), b)
		if err != nil {
			t.Fatal(err)
		}
		if m.Get(0, 7) != 5 {
			t.Errorf("have %g", m.Get(0, 7))
		}
	})

	t.Run("gap", func(t *testing.T) {
		m, err := Mosaic(MergeFirst, constRaster(10, 10, 0, 10, 5), constRaster(10, 10, 15, 20, 7))
		if err != nil {
			t.Fatal(err)
		}
		if m.Nx() != 25 || m.Ny() != 20 {
			t.Fatalf("shape %dx%d", m.Ny(), m.Nx())
		}
		if m.Valid(15, 12) || m.Valid(2, 2) {
			t.Error("uncovered pixels hold data")
		}
		if m.Get(15, 2) != 5 || m.Get(2, 20) != 7 {
			t.Errorf("values: %g %g", m.Get(15, 2), m.Get(2, 20))
		}
	})

	t.Run("incompatible", func(t *testing.T) {
		fine := NewRaster(20, 20, NewGeoTransform(10, 10, 0.5, 0.5), WGS84, math.NaN())
		for name, tiles := range map[string][]*Raster{
			"none":       nil,
			"pixel size": {constRaster(10, 10, 0, 10, 5), fine},
			"misaligned": {constRaster(10, 10, 0, 10, 5), constRaster(10, 10, 10.5, 10, 7)},
			"crs": {constRaster(10, 10, 0, 10, 5),
				NewRaster(10, 10, NewGeoTransform(10, 10, 1, 1), "+proj=merc +datum=WGS84 +units=m +no_defs", 0)},
		} {
			t.Run(name, func(t *testing.T) {
				if _, err := Mosaic(MergeFirst, tiles...); !errors.Is(err, ErrIncompatibleTiles) {
					t.Errorf("error: %v", err)
				}
			})
		}
	})
}

func TestParseMergeRule(t *testing.T) {
	for in, want := range map[string]MergeRule{"": MergeFirst, "first": MergeFirst, " Last": MergeLast} {
		if have, err := ParseMergeRule(in); err != nil || have != want {
			t.Errorf("%q: have %v, %v", in, have, err)
		}
	}
	if _, err := ParseMergeRule("mean"); err == nil {
		t.Error("expected an error")
	}
}

func TestSameCRS(t *testing.T) {
	const wkt = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`
	if !SameCRS("", WGS84) || !SameCRS(wkt, WGS84) {
		t.Error("WGS84 definitions differ")
	}
	if SameCRS(WGS84, "+proj=merc +datum=WGS84 +units=m +no_defs") {
		t.Error("mercator equals WGS84")
	}

	t.Run("mosaic", func(t *testing.T) {
		a := constRaster(10, 10, 0, 10, 5)
		a.CRS = wkt
		m, err := Mosaic(MergeFirst, a, constRaster(10, 10, 10, 10, 7))
		if err != nil {
			t.Fatal(err)
		}
		if m.ValidCount() != 200 {
			t.Errorf("valid pixels: %d", m.ValidCount())
		}
	})
}
