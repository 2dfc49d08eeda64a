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
	"testing"
)

func TestDerive(t *testing.T) {
	a := constRaster(2, 1, 0, 1, 4)
	b := constRaster(2, 1, 0, 1, 1)
	b.Set(math.NaN(), 0, 1)
	layers := map[string]*Raster{"a": a, "b": b}

	r, err := Derive("a + 2*b", layers)
	if err != nil {
		t.Fatal(err)
	}
	checkGrid(t, r, [][]float64{{6, math.NaN()}})

	r, err = Derive("log(a) - abs(-1) + exp(0)", layers)
	if err != nil {
		t.Fatal(err)
	}
	checkGrid(t, r, [][]float64{{math.Log(4), math.Log(4)}})

	for _, expr := range []string{"a > b", "c + 1", "2 + 2", "a +", "exp(a > 1)", "log(b, a)"} {
		if _, err := Derive(expr, layers); err == nil {
			t.Errorf("%q: expected an error", expr)
		}
	}

	t.Run("shape mismatch", func(t *testing.T) {
		layers := map[string]*Raster{"a": a, "b": constRaster(3, 1, 0, 1, 1)}
		if _, err := Derive("a*b", layers); err == nil {
			t.Error("expected an error")
		}
	})
}
