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
	"reflect"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
	"github.com/spf13/cast"
)

// Product is an open satellite science file. NetCDF (classic and 4) and
// HDF5 files are supported. Variables and attributes are looked up by name
// in the root group first and then in nested groups.
type Product struct {
	path string
	root api.Group
}

// Field is a two-dimensional variable read from a Product.
type Field struct {
	Name string

	// Data holds the field values with shape [ny, nx], in file order.
	Data *sparse.DenseArray

	Attributes map[string]interface{}
}

// OpenProduct opens the science file at path.
func OpenProduct(path string) (*Product, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("covidsat: opening %s: %w", path, err)
	}
	return &Product{path: path, root: g}, nil
}

// Close closes the underlying file.
func (p *Product) Close() { p.root.Close() }

// Path returns the location of the file.
func (p *Product) Path() string { return p.path }

// Has returns whether a variable with the given name exists.
func (p *Product) Has(name string) bool {
	v, err := findVariable(p.root, name)
	return err == nil && v != nil
}

// Field reads the named two-dimensional field. A leading dimension of
// length one (e.g. time) is dropped.
func (p *Product) Field(name string) (*Field, error) {
	v, err := findVariable(p.root, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %v", ErrMissingField, name, p.path, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrMissingField, name, p.path)
	}
	vals, shape, err := flatten(v.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %v", ErrMissingField, name, p.path, err)
	}
	for len(shape) > 2 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: %s in %s has shape %v; need two dimensions",
			ErrMissingField, name, p.path, shape)
	}
	f := &Field{
		Name:       name,
		Data:       sparse.ZerosDense(shape...),
		Attributes: attributeMap(v.Attributes),
	}
	copy(f.Data.Elements, vals)
	return f, nil
}

// Attribute returns the value of the named attribute, searching the file
// attributes of every group.
func (p *Product) Attribute(name string) (interface{}, bool) {
	return findAttribute(p.root, name)
}

// FloatAttribute returns the named attribute as a float.
func (p *Product) FloatAttribute(name string) (float64, bool) {
	v, ok := p.Attribute(name)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Coordinates returns the 1-D values of the first variable found
// among names. Two-dimensional coordinate arrays are reduced to their
// first column (across=false) or first row (across=true).
func (p *Product) Coordinates(across bool, names ...string) ([]float64, error) {
	for _, name := range names {
		v, err := findVariable(p.root, name)
		if err != nil || v == nil {
			continue
		}
		vals, shape, err := flatten(v.Values)
		if err != nil {
			return nil, fmt.Errorf("covidsat: coordinate %s: %w", name, err)
		}
		switch len(shape) {
		case 1:
			return vals, nil
		case 2:
			ny, nx := shape[0], shape[1]
			o := make([]float64, 0, ny)
			if across {
				return vals[:nx], nil
			}
			for j := 0; j < ny; j++ {
				o = append(o, vals[j*nx])
			}
			return o, nil
		default:
			return nil, fmt.Errorf("covidsat: coordinate %s has shape %v", name, shape)
		}
	}
	return nil, fmt.Errorf("%w: none of %v found in %s", ErrMissingField, names, p.path)
}

// Grid derives a north-up geotransform from the latitude and longitude
// coordinate variables. flip reports whether rows must be reversed to
// make the data north-up.
func (p *Product) Grid() (t GeoTransform, flip bool, err error) {
	lat, err := p.Coordinates(false, "lat", "latitude", "Latitude", "YDim")
	if err != nil {
		return t, false, err
	}
	lon, err := p.Coordinates(true, "lon", "longitude", "Longitude", "XDim")
	if err != nil {
		return t, false, err
	}
	if len(lat) < 2 || len(lon) < 2 {
		return t, false, fmt.Errorf("%w: coordinates in %s are too short", ErrMissingField, p.path)
	}
	dx := (lon[len(lon)-1] - lon[0]) / float64(len(lon)-1)
	dy := (lat[len(lat)-1] - lat[0]) / float64(len(lat)-1)
	flip = dy > 0
	dy = math.Abs(dy)
	north := math.Max(lat[0], lat[len(lat)-1])
	return NewGeoTransform(lon[0]-dx/2, north+dy/2, dx, dy), flip, nil
}

// flipRows reverses the row order of a [ny, nx] array in place.
func flipRows(a *sparse.DenseArray) {
	ny, nx := a.Shape[0], a.Shape[1]
	for j := 0; j < ny/2; j++ {
		top := a.Elements[j*nx : (j+1)*nx]
		bot := a.Elements[(ny-1-j)*nx : (ny-j)*nx]
		for i := range top {
			top[i], bot[i] = bot[i], top[i]
		}
	}
}

func findVariable(g api.Group, name string) (*api.Variable, error) {
	for _, v := range g.ListVariables() {
		if v == name {
			return g.GetVariable(name)
		}
	}
	subs := g.ListSubgroups()
	sort.Strings(subs)
	for _, s := range subs {
		sg, err := g.GetGroup(s)
		if err != nil {
			return nil, err
		}
		v, err := findVariable(sg, name)
		sg.Close()
		if err != nil || v != nil {
			return v, err
		}
	}
	return nil, nil
}

func findAttribute(g api.Group, name string) (interface{}, bool) {
	if a := g.Attributes(); a != nil {
		if v, ok := a.Get(name); ok {
			return v, true
		}
	}
	subs := g.ListSubgroups()
	sort.Strings(subs)
	for _, s := range subs {
		sg, err := g.GetGroup(s)
		if err != nil {
			continue
		}
		v, ok := findAttribute(sg, name)
		sg.Close()
		if ok {
			return v, true
		}
	}
	return nil, false
}

func attributeMap(a api.AttributeMap) map[string]interface{} {
	o := make(map[string]interface{})
	if a == nil {
		return o
	}
	for _, k := range a.Keys() {
		v, _ := a.Get(k)
		o[k] = v
	}
	return o
}

// flatten converts a possibly nested slice of numbers into a flat
// float64 slice and its shape.
func flatten(v interface{}) ([]float64, []int, error) {
	rv := reflect.ValueOf(v)
	var shape []int
	for t := rv; t.Kind() == reflect.Slice; {
		shape = append(shape, t.Len())
		if t.Len() == 0 {
			break
		}
		t = t.Index(0)
	}
	if len(shape) == 0 {
		f, ok := toFloat(v)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported value type %T", v)
		}
		return []float64{f}, []int{1}, nil
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	o := make([]float64, 0, n)
	var walk func(reflect.Value, int) error
	walk = func(x reflect.Value, depth int) error {
		if depth < len(shape)-1 {
			if x.Len() != shape[depth] {
				return fmt.Errorf("ragged array")
			}
			for i := 0; i < x.Len(); i++ {
				if err := walk(x.Index(i), depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		for i := 0; i < x.Len(); i++ {
			f, ok := numeric(x.Index(i))
			if !ok {
				return fmt.Errorf("unsupported element type %s", x.Index(i).Type())
			}
			o = append(o, f)
		}
		return nil
	}
	if err := walk(rv, 0); err != nil {
		return nil, nil, err
	}
	return o, shape, nil
}

func numeric(x reflect.Value) (float64, bool) {
	if !x.CanInterface() {
		return 0, false
	}
	switch x.Kind() {
	case reflect.Bool, reflect.String:
		return 0, false
	}
	f, err := cast.ToFloat64E(x.Interface())
	return f, err == nil
}

// toFloat interprets an attribute value as a float. Slices yield their
// first element and strings are parsed.
func toFloat(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		f, err := cast.ToFloat64E(strings.TrimSpace(s))
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return 0, false
		}
		return toFloat(rv.Index(0).Interface())
	}
	return numeric(rv)
}
