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
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNCF(t *testing.T) {
	r := constRaster(3, 2, 10, 2, 1.5)
	r.Set(math.NaN(), 0, 0)
	r.Set(-2.25, 1, 2)
	r.Tags["source"] = ntlFile
	r.Tags["date"] = "2020-01-01"

	f := filepath.Join(t.TempDir(), "out", "2020-01-01.ncf")
	formats := Formats{".ncf": NCF{}}
	if err := formats.Write(f, r); err != nil {
		t.Fatal(err)
	}
	o, err := formats.Read(f)
	if err != nil {
		t.Fatal(err)
	}
	if o.Transform != r.Transform || o.CRS != WGS84 || !math.IsNaN(o.NoData) {
		t.Errorf("georeference: %v %q %g", o.Transform, o.CRS, o.NoData)
	}
	checkGrid(t, o, [][]float64{
		{math.NaN(), 1.5, 1.5},
		{1.5, 1.5, -2.25},
	})
	if o.Tags["source"] != ntlFile || o.Tags["date"] != "2020-01-01" {
		t.Errorf("tags: %v", o.Tags)
	}

	t.Run("numeric no-data", func(t *testing.T) {
		r := constRaster(2, 2, 0, 2, 1)
		r.NoData = -1.2676506e+30
		r.Set(r.NoData, 0, 0)
		f := filepath.Join(t.TempDir(), "a.ncf")
		if err := (NCF{}).Write(f, r); err != nil {
			t.Fatal(err)
		}
		o, err := NCF{}.Read(f)
		if err != nil {
			t.Fatal(err)
		}
		if o.ValidCount() != 3 {
			t.Errorf("valid pixels: %d", o.ValidCount())
		}
	})

	t.Run("not ncf", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "bad.ncf")
		os.WriteFile(f, []byte("text"), 0644)
		if _, err := formats.Read(f); err == nil {
			t.Error("expected an error")
		}
		if _, err := formats.Read("a.jpg"); err == nil {
			t.Error("expected an error for an unknown extension")
		}
	})
}
