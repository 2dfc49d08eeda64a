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
	"sort"

	"github.com/Knetic/govaluate"
)

// expressionFunctions are the functions available to derived layer
// expressions.
var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"exp": unaryFunction("exp", math.Exp),
	"log": unaryFunction("log", math.Log),
	"abs": unaryFunction("abs", math.Abs),
}

// unaryFunction wraps f as an expression function of one number.
func unaryFunction(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("covidsat: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		x, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("covidsat: function '%s' needs a number, got %T", name, arg[0])
		}
		return f(x), nil
	}
}

// Derive evaluates expr at every pixel, where the variables in expr
// refer to rasters in layers. All referenced rasters must share a shape;
// the result takes its georeference from the first referenced raster
// in alphabetical order. A pixel that is no-data in any referenced
// raster is no-data in the result.
func Derive(expr string, layers map[string]*Raster) (*Raster, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, expressionFunctions)
	if err != nil {
		return nil, err
	}
	vars := removeDuplicates(e.Vars())
	if len(vars) == 0 {
		return nil, fmt.Errorf("expression %q does not reference any layers", expr)
	}
	sort.Strings(vars)
	inputs := make([]*Raster, len(vars))
	for i, v := range vars {
		r, ok := layers[v]
		if !ok {
			return nil, fmt.Errorf("undefined variable name '%s'", v)
		}
		if i > 0 && !sameShape(r.Data.Shape, inputs[0].Data.Shape) {
			return nil, fmt.Errorf("layer %s shape %v does not match %v", v, r.Data.Shape, inputs[0].Data.Shape)
		}
		inputs[i] = r
	}
	ref := inputs[0]
	out := NewRaster(ref.Nx(), ref.Ny(), ref.Transform, ref.CRS, ref.NoData)
	params := make(map[string]interface{}, len(vars))
pixels:
	for k := range out.Data.Elements {
		for i, v := range vars {
			x := inputs[i].Data.Elements[k]
			if inputs[i].IsNoData(x) {
				continue pixels
			}
			params[v] = x
		}
		result, err := e.Evaluate(params)
		if err != nil {
			return nil, err
		}
		f, ok := result.(float64)
		if !ok {
			return nil, fmt.Errorf("expression %q returned %T, not a number", expr, result)
		}
		out.Data.Elements[k] = f
	}
	return out, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}
