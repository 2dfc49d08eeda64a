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
	"io/ioutil"
	"math"
	"sort"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/sirupsen/logrus"
)

// attrs builds an attribute map with sorted keys.
func attrs(t *testing.T, m map[string]interface{}) api.AttributeMap {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	a, err := util.NewOrderedMap(keys, m)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

type ncVar struct {
	name   string
	values interface{}
	dims   []string
	attrs  map[string]interface{}
}

// writeNC writes a NetCDF classic file holding vars and global attributes.
func writeNC(t *testing.T, path string, global map[string]interface{}, vars ...ncVar) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(global) > 0 {
		if err := cw.AddGlobalAttrs(attrs(t, global)); err != nil {
			t.Fatal(err)
		}
	}
	for _, v := range vars {
		a := v.attrs
		if a == nil {
			a = map[string]interface{}{}
		}
		err := cw.AddVar(v.name, api.Variable{
			Values:     v.values,
			Dimensions: v.dims,
			Attributes: attrs(t, a),
		})
		if err != nil {
			t.Fatalf("adding %s: %v", v.name, err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return l
}

// constRaster returns an nx by ny raster of value v with its upper-left
// corner at (x0, y0) and unit pixels.
func constRaster(nx, ny int, x0, y0, v float64) *Raster {
	r := NewRaster(nx, ny, NewGeoTransform(x0, y0, 1, 1), WGS84, math.NaN())
	for i := range r.Data.Elements {
		r.Data.Elements[i] = v
	}
	return r
}

// same compares floats, treating NaN as equal to NaN.
func same(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) < 1e-6*math.Max(1, math.Abs(b))
}

// checkGrid compares r with want, given as rows from north to south.
func checkGrid(t *testing.T, r *Raster, want [][]float64) {
	t.Helper()
	if r.Ny() != len(want) || r.Nx() != len(want[0]) {
		t.Fatalf("shape: have %dx%d, want %dx%d", r.Ny(), r.Nx(), len(want), len(want[0]))
	}
	for j, row := range want {
		for i, w := range row {
			if have := r.Get(j, i); !same(have, w) {
				t.Errorf("pixel (%d, %d): have %g, want %g", j, i, have, w)
			}
		}
	}
}
