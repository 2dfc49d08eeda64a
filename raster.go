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

// Package covidsat downloads, preprocesses, mosaics, and clips satellite
// raster products (nitrogen dioxide, carbon monoxide, and nighttime lights).
package covidsat

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Version gives the version number.
const Version = "1.0.0"

// WGS84 is the PROJ.4 definition of geographic latitude/longitude
// coordinates (EPSG:4326), which all of the supported satellite products use.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// GeoTransform is an affine transform from pixel (column, row) space to
// projected (x, y) space, in GDAL ordering:
//  x = T[0] + col*T[1] + row*T[2]
//  y = T[3] + col*T[4] + row*T[5]
type GeoTransform [6]float64

// NewGeoTransform returns a north-up transform with the upper-left corner
// at (x0, y0) and pixel edge lengths dx and dy.
func NewGeoTransform(x0, y0, dx, dy float64) GeoTransform {
	return GeoTransform{x0, dx, 0, y0, 0, -dy}
}

// Rotated returns whether t has non-zero rotation terms.
func (t GeoTransform) Rotated() bool { return t[2] != 0 || t[4] != 0 }

// Dx returns the pixel width.
func (t GeoTransform) Dx() float64 { return t[1] }

// Dy returns the (positive) pixel height.
func (t GeoTransform) Dy() float64 { return math.Abs(t[5]) }

// Raster is a single-band georeferenced grid. Row 0 is the northern edge.
type Raster struct {
	// Data holds the pixel values, with shape [ny, nx].
	Data *sparse.DenseArray

	Transform GeoTransform

	// CRS is the coordinate reference system, as a PROJ.4 or WKT string.
	CRS string

	// NoData is the sentinel for missing pixels. It may be NaN.
	NoData float64

	// Tags hold metadata carried over from the source file.
	Tags map[string]string
}

// NewRaster returns a raster with shape [ny, nx] where every pixel is
// set to noData.
func NewRaster(nx, ny int, t GeoTransform, crs string, noData float64) *Raster {
	r := &Raster{
		Data:      sparse.ZerosDense(ny, nx),
		Transform: t,
		CRS:       crs,
		NoData:    noData,
		Tags:      make(map[string]string),
	}
	if noData != 0 {
		for i := range r.Data.Elements {
			r.Data.Elements[i] = noData
		}
	}
	return r
}

// Nx returns the number of columns.
func (r *Raster) Nx() int { return r.Data.Shape[1] }

// Ny returns the number of rows.
func (r *Raster) Ny() int { return r.Data.Shape[0] }

// Get returns the value at row j, column i.
func (r *Raster) Get(j, i int) float64 { return r.Data.Get(j, i) }

// Set sets the value at row j, column i.
func (r *Raster) Set(v float64, j, i int) { r.Data.Set(v, j, i) }

// IsNoData returns whether v is the no-data sentinel of r.
// NaN is always treated as no-data.
func (r *Raster) IsNoData(v float64) bool {
	return math.IsNaN(v) || v == r.NoData
}

// Valid returns whether the pixel at row j, column i holds data.
func (r *Raster) Valid(j, i int) bool { return !r.IsNoData(r.Get(j, i)) }

// Bounds returns the footprint of r.
func (r *Raster) Bounds() *geom.Bounds {
	t := r.Transform
	x1 := t[0] + float64(r.Nx())*t[1]
	y1 := t[3] + float64(r.Ny())*t[5]
	return &geom.Bounds{
		Min: geom.Point{X: math.Min(t[0], x1), Y: math.Min(t[3], y1)},
		Max: geom.Point{X: math.Max(t[0], x1), Y: math.Max(t[3], y1)},
	}
}

// Cell returns the polygon covering the pixel at row j, column i.
func (r *Raster) Cell(j, i int) geom.Polygon {
	t := r.Transform
	x0 := t[0] + float64(i)*t[1]
	y0 := t[3] + float64(j)*t[5]
	x1, y1 := x0+t[1], y0+t[5]
	return geom.Polygon{{
		{X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0},
	}}
}

// Center returns the center of the pixel at row j, column i.
func (r *Raster) Center(j, i int) geom.Point {
	t := r.Transform
	return geom.Point{
		X: t[0] + (float64(i)+0.5)*t[1],
		Y: t[3] + (float64(j)+0.5)*t[5],
	}
}

// Copy returns a deep copy of r.
func (r *Raster) Copy() *Raster {
	o := &Raster{
		Data:      r.Data.Copy(),
		Transform: r.Transform,
		CRS:       r.CRS,
		NoData:    r.NoData,
		Tags:      make(map[string]string, len(r.Tags)),
	}
	for k, v := range r.Tags {
		o.Tags[k] = v
	}
	return o
}

// ValidCount returns the number of pixels that hold data.
func (r *Raster) ValidCount() int {
	n := 0
	for _, v := range r.Data.Elements {
		if !r.IsNoData(v) {
			n++
		}
	}
	return n
}

func (r *Raster) String() string {
	return fmt.Sprintf("Raster{%dx%d, origin=(%g, %g), dx=%g, dy=%g}",
		r.Ny(), r.Nx(), r.Transform[0], r.Transform[3], r.Transform.Dx(), r.Transform.Dy())
}
