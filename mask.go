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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// QualityCheck specifies a quality field and the inclusive range of its
// values that are accepted.
type QualityCheck struct {
	Field    string
	Min, Max float64
}

// Accept returns whether quality code q passes the check.
func (qc *QualityCheck) Accept(q float64) bool {
	return !math.IsNaN(q) && q >= qc.Min && q <= qc.Max
}

// UnitConversion is a linear transformation from raw stored values to
// physical units: v = raw*Scale + Offset.
type UnitConversion struct {
	Scale, Offset float64
}

// Identity is the conversion that leaves values unchanged.
var Identity = UnitConversion{Scale: 1}

// Apply converts raw to physical units.
func (u UnitConversion) Apply(raw float64) float64 { return raw*u.Scale + u.Offset }

// UnitsFromAttributes returns the conversion described by the CF
// scale_factor and add_offset attributes, or Identity if they are absent.
func UnitsFromAttributes(attrs map[string]interface{}) UnitConversion {
	u := Identity
	if v, ok := attrs["scale_factor"]; ok {
		if f, ok := toFloat(v); ok {
			u.Scale = f
		}
	}
	if v, ok := attrs["add_offset"]; ok {
		if f, ok := toFloat(v); ok {
			u.Offset = f
		}
	}
	return u
}

// FillValues returns the raw fill and missing values declared in attrs.
func FillValues(attrs map[string]interface{}) []float64 {
	var o []float64
	for _, k := range []string{"_FillValue", "missing_value"} {
		if v, ok := attrs[k]; ok {
			if f, ok := toFloat(v); ok {
				o = append(o, f)
			}
		}
	}
	return o
}

// MaskAndScale returns a raster whose pixels are raw*u.Scale+u.Offset
// where the raw value is not a fill value and, if quality is not nil,
// the corresponding quality code passes qc. All other pixels are set to
// noData. raw and quality must have the same shape.
func MaskAndScale(raw, quality *sparse.DenseArray, qc *QualityCheck, fill []float64, u UnitConversion,
	t GeoTransform, crs string, noData float64) (*Raster, error) {
	if len(raw.Shape) != 2 {
		return nil, fmt.Errorf("%w: raw data has shape %v", ErrMissingField, raw.Shape)
	}
	if quality != nil && !sameShape(raw.Shape, quality.Shape) {
		return nil, fmt.Errorf("%w: quality shape %v does not match data shape %v",
			ErrMissingField, quality.Shape, raw.Shape)
	}
	out := NewRaster(raw.Shape[1], raw.Shape[0], t, crs, noData)
	for k, v := range raw.Elements {
		if math.IsNaN(v) || isFill(v, fill) {
			continue
		}
		if quality != nil && qc != nil && !qc.Accept(quality.Elements[k]) {
			continue
		}
		out.Data.Elements[k] = u.Apply(v)
	}
	return out, nil
}

func isFill(v float64, fill []float64) bool {
	for _, f := range fill {
		if v == f {
			return true
		}
		// Fill values stored as float32 lose precision on the way to float64.
		if f != 0 && math.Abs((v-f)/f) < 1e-6 {
			return true
		}
	}
	return false
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
