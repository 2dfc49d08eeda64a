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
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// MergeRule determines which value is kept where mosaicked tiles overlap.
type MergeRule int

const (
	// MergeFirst keeps the value of the earliest tile holding data.
	MergeFirst MergeRule = iota

	// MergeLast keeps the value of the latest tile holding data.
	MergeLast
)

// ParseMergeRule parses "first" or "last".
func ParseMergeRule(s string) (MergeRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return MergeFirst, nil
	case "last":
		return MergeLast, nil
	default:
		return MergeFirst, fmt.Errorf("covidsat: invalid merge rule %q; must be 'first' or 'last'", s)
	}
}

func (m MergeRule) String() string {
	if m == MergeLast {
		return "last"
	}
	return "first"
}

// gridTolerance is the fraction of a pixel by which tile origins may
// deviate from the common grid.
const gridTolerance = 1e-6

// Mosaic combines tiles into a single raster covering the union of their
// footprints. All tiles must share a coordinate reference system and pixel
// size and be aligned to the same pixel grid. Tiles are merged in the order
// given, so callers should sort them for reproducible output. Pixels not
// covered by any tile are no-data. The output takes its CRS and no-data
// value from the first tile.
func Mosaic(rule MergeRule, tiles ...*Raster) (*Raster, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w: no tiles to mosaic", ErrIncompatibleTiles)
	}
	first := tiles[0]
	dx, dy := first.Transform.Dx(), first.Transform.Dy()
	b := geom.NewBounds()
	for i, t := range tiles {
		if t.Transform.Rotated() {
			return nil, fmt.Errorf("%w: tile %d is rotated", ErrIncompatibleTiles, i)
		}
		if !sameFloat(t.Transform.Dx(), dx) || !sameFloat(t.Transform.Dy(), dy) {
			return nil, fmt.Errorf("%w: tile %d pixel size (%g, %g) differs from (%g, %g)",
				ErrIncompatibleTiles, i, t.Transform.Dx(), t.Transform.Dy(), dx, dy)
		}
		if !SameCRS(t.CRS, first.CRS) {
			return nil, fmt.Errorf("%w: tile %d coordinate reference system differs", ErrIncompatibleTiles, i)
		}
		b.Extend(t.Bounds())
	}

	nx := round((b.Max.X - b.Min.X) / dx)
	ny := round((b.Max.Y - b.Min.Y) / dy)
	o := NewRaster(nx, ny, NewGeoTransform(b.Min.X, b.Max.Y, dx, dy), first.CRS, first.NoData)
	for k, v := range first.Tags {
		o.Tags[k] = v
	}

	for n, t := range tiles {
		io, err := offset(t.Transform[0]-b.Min.X, dx)
		if err != nil {
			return nil, fmt.Errorf("%w: tile %d: %v", ErrIncompatibleTiles, n, err)
		}
		jo, err := offset(b.Max.Y-t.Transform[3], dy)
		if err != nil {
			return nil, fmt.Errorf("%w: tile %d: %v", ErrIncompatibleTiles, n, err)
		}
		for j := 0; j < t.Ny(); j++ {
			for i := 0; i < t.Nx(); i++ {
				v := t.Get(j, i)
				if t.IsNoData(v) {
					continue
				}
				oj, oi := jo+j, io+i
				if oi < 0 || oj < 0 || oi >= nx || oj >= ny {
					continue
				}
				if rule == MergeFirst && o.Valid(oj, oi) {
					continue
				}
				o.Set(v, oj, oi)
			}
		}
	}
	return o, nil
}

// offset returns the whole number of pixels of size d in distance x.
func offset(x, d float64) (int, error) {
	f := x / d
	n := math.Round(f)
	if math.Abs(f-n) > gridTolerance*math.Max(1, math.Abs(f)) {
		return 0, fmt.Errorf("origin is %g pixels from the common grid", f-n)
	}
	return int(n), nil
}

func round(v float64) int {
	return int(math.Round(v))
}

func sameFloat(a, b float64) bool {
	return a == b || math.Abs(a-b) <= gridTolerance*math.Max(math.Abs(a), math.Abs(b))
}

// SameCRS returns whether two coordinate reference system definitions
// are equivalent. Empty definitions are assumed to be WGS84.
func SameCRS(a, b string) bool {
	if a == "" {
		a = WGS84
	}
	if b == "" {
		b = WGS84
	}
	if strings.TrimSpace(a) == strings.TrimSpace(b) {
		return true
	}
	sa, err := ParseCRS(a)
	if err != nil {
		return false
	}
	sb, err := ParseCRS(b)
	if err != nil {
		return false
	}
	return sa.Equal(sb, 1e6)
}

// ParseCRS parses a PROJ.4 or WKT coordinate reference system. An empty
// definition, or WKT whose outermost authority is EPSG:4326, is WGS84.
func ParseCRS(crs string) (*proj.SR, error) {
	if strings.TrimSpace(crs) == "" || isEPSG4326(crs) {
		crs = WGS84
	}
	sr, err := proj.Parse(crs)
	if err != nil {
		return nil, fmt.Errorf("covidsat: parsing coordinate reference system: %w", err)
	}
	return sr, nil
}

// isEPSG4326 reports whether crs is a geographic WKT definition tagged
// with the EPSG:4326 authority, as GDAL writes WGS84.
func isEPSG4326(crs string) bool {
	c := strings.Join(strings.Fields(crs), "")
	return strings.HasPrefix(c, "GEOGCS[") && strings.HasSuffix(c, `AUTHORITY["EPSG","4326"]]`)
}
