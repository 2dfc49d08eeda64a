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


package geotiff

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/covidsat"
)

func TestRoundTrip(t *testing.T) {
	r := covidsat.NewRaster(4, 3, covidsat.NewGeoTransform(-85, 35, 0.5, 0.5), covidsat.WGS84, math.NaN())
	for j := 0; j < 3; j++ {
		for i := 1; i < 4; i++ {
			r.Set(float64(j*10+i), j, i)
		}
	}
	r.Tags["date"] = "2020-03-15"

	c := New()
	f := filepath.Join(t.TempDir(), "2020-03-15.tif")
	if err := c.Write(f, r); err != nil {
		t.Fatal(err)
	}
	o, err := c.Read(f)
	if err != nil {
		t.Fatal(err)
	}
	if o.Nx() != 4 || o.Ny() != 3 {
		t.Fatalf("shape %dx%d", o.Ny(), o.Nx())
	}
	if o.Transform != r.Transform {
		t.Errorf("transform: have %v, want %v", o.Transform, r.Transform)
	}
	if !covidsat.SameCRS(o.CRS, covidsat.WGS84) {
		t.Errorf("crs: %s", o.CRS)
	}
	if o.ValidCount() != 9 || o.Valid(1, 0) || o.Get(2, 3) != 23 {
		t.Errorf("data: %v", o.Data.Elements)
	}
	if o.Tags["date"] != "2020-03-15" {
		t.Errorf("tags: %v", o.Tags)
	}
}

func TestFormats(t *testing.T) {
	formats := covidsat.Formats{".tif": New(), ".ncf": covidsat.NCF{}}
	dir := t.TempDir()
	r := covidsat.NewRaster(2, 2, covidsat.NewGeoTransform(0, 2, 1, 1), covidsat.WGS84, -9999)
	r.Set(1, 0, 0)
	if err := formats.Write(filepath.Join(dir, "a.tif"), r); err != nil {
		t.Fatal(err)
	}
	o, err := formats.Read(filepath.Join(dir, "a.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if err := formats.Write(filepath.Join(dir, "a.ncf"), o); err != nil {
		t.Fatal(err)
	}
	files, err := formats.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("files: %v", files)
	}
	if o.NoData != -9999 || o.ValidCount() != 1 {
		t.Errorf("no-data %g, %d valid", o.NoData, o.ValidCount())
	}
}
