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
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
)

const (
	no2File = "OMI-Aura_L3-OMNO2d_2020m0101_v003-2020m0103t003254.he5.nc4"
	coFile  = "AIRS.2020.01.01.L3.RetStd_IR001.v7.0.3.0.G20004123055.hdf.nc4"
	omiFill = float32(-1.2676506e+30)
)

// writeNO2 writes an OMNO2d-like file with a south-up 2x3 grid.
func writeNO2(t *testing.T, dir string) string {
	path := filepath.Join(dir, no2File)
	lat := []float64{0.5, 1.5}
	lon := []float64{10.5, 11.5, 12.5}
	column := [][]float32{{1, 2, omiFill}, {4, 5, 6}}
	weight := [][]float32{{1, 1, 1}, {0, 2, 3}}
	colAttrs := map[string]interface{}{
		"_FillValue":   []float32{omiFill},
		"scale_factor": []float64{2},
		"add_offset":   []float64{1},
		"Units":        "molec/cm2",
	}
	vars := []ncVar{
		{name: "lat", values: lat, dims: []string{"lat"}},
		{name: "lon", values: lon, dims: []string{"lon"}},
		{name: "Weight", values: weight, dims: []string{"lat", "lon"}},
	}
	for _, f := range []string{"ColumnAmountNO2", "ColumnAmountNO2CloudScreened",
		"ColumnAmountNO2Trop", "ColumnAmountNO2TropCloudScreened"} {
		vars = append(vars, ncVar{name: f, values: column, dims: []string{"lat", "lon"}, attrs: colAttrs})
	}
	writeNC(t, path, map[string]interface{}{"title": "OMNO2d"}, vars...)
	return path
}

// writeCO writes an AIRS3STD-like file with a north-up 2x2 grid.
func writeCO(t *testing.T, dir string) string {
	path := filepath.Join(dir, coFile)
	writeNC(t, path, nil,
		ncVar{name: "Latitude", values: []float32{89.5, 88.5}, dims: []string{"YDim"}},
		ncVar{name: "Longitude", values: []float32{-179.5, -178.5}, dims: []string{"XDim"}},
		ncVar{name: "TotCO_A", values: [][]float32{{1.5e18, -9999}, {2.5e18, 3e18}},
			dims: []string{"YDim", "XDim"}, attrs: map[string]interface{}{"_FillValue": []float32{-9999}}},
	)
	return path
}

func TestMaskAndScale(t *testing.T) {
	raw := sparse.ZerosDense(2, 3)
	copy(raw.Elements, []float64{10, 20, -999, 40, math.NaN(), 60})
	q := sparse.ZerosDense(2, 3)
	copy(q.Elements, []float64{0, 1, 0, 2, 0, math.NaN()})
	qc := &QualityCheck{Field: "qa", Min: 0, Max: 1}
	r, err := MaskAndScale(raw, q, qc, []float64{-999}, UnitConversion{Scale: 0.5, Offset: 1},
		NewGeoTransform(0, 2, 1, 1), WGS84, -1)
	if err != nil {
		t.Fatal(err)
	}
	checkGrid(t, r, [][]float64{
		{6, 11, -1},
		{-1, -1, -1},
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := MaskAndScale(raw, sparse.ZerosDense(3, 2), qc, nil, Identity, r.Transform, WGS84, -1)
		if !errors.Is(err, ErrMissingField) {
			t.Errorf("error: %v", err)
		}
	})
}

func TestUnitsFromAttributes(t *testing.T) {
	u := UnitsFromAttributes(map[string]interface{}{"scale_factor": []float32{0.1}, "add_offset": 5.0})
	if !same(u.Scale, 0.1) || u.Offset != 5 {
		t.Errorf("have %+v", u)
	}
	if u := UnitsFromAttributes(nil); u != Identity {
		t.Errorf("have %+v, want identity", u)
	}
}

func TestToFloat(t *testing.T) {
	for _, test := range []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{in: float32(0.5), want: 0.5, ok: true},
		{in: []int16{-9999}, want: -9999, ok: true},
		{in: []uint8{255, 0}, want: 255, ok: true},
		{in: uint32(7), want: 7, ok: true},
		{in: " 1e3 ", want: 1000, ok: true},
		{in: []string{"2.5"}, want: 2.5, ok: true},
		{in: "fill"},
		{in: []float64{}},
		{in: nil},
		{in: true},
	} {
		have, ok := toFloat(test.in)
		if ok != test.ok || (ok && !same(have, test.want)) {
			t.Errorf("%#v: have %g, %v; want %g, %v", test.in, have, ok, test.want, test.ok)
		}
	}
}

func TestScienceProduct_NO2(t *testing.T) {
	path := writeNO2(t, t.TempDir())
	sp := NO2()
	sp.Derived = map[string]string{"stratospheric-all-conditions": "ColumnAmountNO2 - ColumnAmountNO2Trop"}
	layers, err := sp.Preprocess(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 6 {
		t.Fatalf("have %d layers", len(layers))
	}
	nan := math.NaN()
	r := layers["total-all-conditions"]
	if r.Transform != NewGeoTransform(10, 2, 1, 1) {
		t.Errorf("transform: %v", r.Transform)
	}
	// North-up: the second file row comes first. Zero-weight and fill
	// pixels are masked, and the rest are raw*2+1.
	checkGrid(t, r, [][]float64{
		{nan, 11, 13},
		{3, 5, nan},
	})
	checkGrid(t, layers["pixel-weights"], [][]float64{
		{0, 2, 3},
		{1, 1, 1},
	})
	checkGrid(t, layers["stratospheric-all-conditions"], [][]float64{
		{nan, 0, 0},
		{0, 0, nan},
	})

	t.Run("missing quality", func(t *testing.T) {
		sp := NO2()
		sp.Quality = &QualityCheck{Field: "QualityFlags"}
		if _, err := sp.Preprocess(path); !errors.Is(err, ErrMissingQuality) {
			t.Errorf("error: %v", err)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		sp := CO()
		sp.Date = NO2DateFromName
		if _, err := sp.Preprocess(path); !errors.Is(err, ErrMissingField) {
			t.Errorf("error: %v", err)
		}
	})

	t.Run("units override", func(t *testing.T) {
		sp := NO2()
		sp.Units = &Identity
		layers, err := sp.Preprocess(path)
		if err != nil {
			t.Fatal(err)
		}
		checkGrid(t, layers["tropospheric-cloud-screened"], [][]float64{
			{nan, 5, 6},
			{1, 2, nan},
		})
	})
}

func TestScienceProduct_CO(t *testing.T) {
	path := writeCO(t, t.TempDir())
	layers, err := CO().Preprocess(path)
	if err != nil {
		t.Fatal(err)
	}
	r := layers[""]
	if r.Transform != NewGeoTransform(-180, 90, 1, 1) {
		t.Errorf("transform: %v", r.Transform)
	}
	checkGrid(t, r, [][]float64{
		{1.5e18, math.NaN()},
		{2.5e18, 3e18},
	})
}

func TestPreprocessScienceDir(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeCO(t, in)
	if err := os.WriteFile(filepath.Join(in, "AIRS.2020.01.02.L3.RetStd_IR001.v7.0.3.0.G20004123056.hdf.nc4"),
		[]byte("not netcdf"), 0644); err != nil {
		t.Fatal(err)
	}
	formats := Formats{".ncf": NCF{}}
	s, err := PreprocessScienceDir(context.Background(), quietLogger(), CO(), in, out, ".ncf", formats)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Results) != 2 || len(s.Failed()) != 1 || s.Outputs() != 1 {
		t.Fatalf("summary: %+v", s)
	}
	r, err := formats.Read(filepath.Join(out, "2020-01-01.ncf"))
	if err != nil {
		t.Fatal(err)
	}
	if r.ValidCount() != 3 {
		t.Errorf("valid pixels: %d", r.ValidCount())
	}
}
