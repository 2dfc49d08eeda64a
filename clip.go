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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// ClipOptions control how rasters are clipped.
type ClipOptions struct {
	// AllTouched keeps every pixel whose cell overlaps the area of
	// interest by a positive area. Otherwise a pixel is kept only if
	// its center is inside or on the edge of the area of interest.
	AllTouched bool

	// Crop shrinks the output to the pixel window covering the
	// area of interest.
	Crop bool
}

// DefaultClipOptions keep all touched pixels and crop to the AOI.
var DefaultClipOptions = ClipOptions{AllTouched: true, Crop: true}

// minOverlap is the fraction of a cell area that counts as overlap.
const minOverlap = 1e-9

type aoiPolygon struct {
	geom.Polygonal
}

// Clip returns a copy of r in which pixels outside aoi are set to no-data.
// aoi is reprojected to the CRS of r before clipping.
func Clip(r *Raster, aoi *AOI, opts ClipOptions) (*Raster, error) {
	if aoi == nil || len(aoi.Polygons) == 0 {
		return nil, ErrEmptyAOI
	}
	if r.Transform.Rotated() {
		return nil, fmt.Errorf("covidsat: clipping rotated rasters is not supported")
	}
	a, err := aoi.Transform(r.CRS)
	if err != nil {
		return nil, err
	}
	ab := a.Bounds()
	rb := r.Bounds()
	if !(ab.Min.X < rb.Max.X && ab.Max.X > rb.Min.X && ab.Min.Y < rb.Max.Y && ab.Max.Y > rb.Min.Y) {
		return nil, ErrNoOverlap
	}

	index := rtree.NewTree(25, 50)
	for _, p := range a.Polygons {
		index.Insert(aoiPolygon{p})
	}

	// Pixel window to process.
	i0, i1, j0, j1 := 0, r.Nx(), 0, r.Ny()
	if opts.Crop {
		i0, i1, j0, j1 = window(r, ab)
	}

	t := r.Transform
	ot := t
	ot[0] = t[0] + float64(i0)*t[1]
	ot[3] = t[3] + float64(j0)*t[5]
	o := NewRaster(i1-i0, j1-j0, ot, r.CRS, r.NoData)
	for k, v := range r.Tags {
		o.Tags[k] = v
	}

	kept := 0
	for j := j0; j < j1; j++ {
		for i := i0; i < i1; i++ {
			if !inside(r, j, i, index, opts.AllTouched) {
				continue
			}
			v := r.Get(j, i)
			o.Set(v, j-j0, i-i0)
			kept++
		}
	}
	if kept == 0 {
		return nil, ErrNoOverlap
	}
	return o, nil
}

// window returns the column and row ranges of r covering b, snapped
// outward to whole pixels.
func window(r *Raster, b *geom.Bounds) (i0, i1, j0, j1 int) {
	t := r.Transform
	dx, dy := t.Dx(), t.Dy()
	const eps = 1e-9
	i0 = int(math.Floor((b.Min.X-t[0])/dx + eps))
	i1 = int(math.Ceil((b.Max.X-t[0])/dx - eps))
	j0 = int(math.Floor((t[3]-b.Max.Y)/dy + eps))
	j1 = int(math.Ceil((t[3]-b.Min.Y)/dy - eps))
	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v > max {
			return max
		}
		return v
	}
	return clamp(i0, r.Nx()), clamp(i1, r.Nx()), clamp(j0, r.Ny()), clamp(j1, r.Ny())
}

// inside returns whether pixel (j, i) of r belongs to the area of
// interest held in index.
func inside(r *Raster, j, i int, index *rtree.Rtree, allTouched bool) bool {
	cell := r.Cell(j, i)
	center := r.Center(j, i)
	cellArea := r.Transform.Dx() * r.Transform.Dy()
	for _, item := range index.SearchIntersect(cell.Bounds()) {
		p := item.(aoiPolygon)
		if center.Within(p.Polygonal) != geom.Outside {
			return true
		}
		if !allTouched {
			continue
		}
		if isect := cell.Intersection(p.Polygonal); isect != nil && isect.Area() > minOverlap*cellArea {
			return true
		}
	}
	return false
}
