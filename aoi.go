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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// AOI is an area of interest: a set of polygons in a spatial reference.
type AOI struct {
	Polygons []geom.Polygonal

	// SR is the spatial reference of the polygons. Nil means WGS84.
	SR *proj.SR
}

// Bounds returns the bounding box of all polygons.
func (a *AOI) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, p := range a.Polygons {
		b.Extend(p.Bounds())
	}
	return b
}

// Transform returns a copy of a reprojected to the given coordinate
// reference system.
func (a *AOI) Transform(crs string) (*AOI, error) {
	dst, err := ParseCRS(crs)
	if err != nil {
		return nil, err
	}
	src := a.SR
	if src == nil {
		if src, err = ParseCRS(WGS84); err != nil {
			return nil, err
		}
	}
	if src.Equal(dst, 1e6) {
		return &AOI{Polygons: a.Polygons, SR: dst}, nil
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("covidsat: creating AOI reprojector: %w", err)
	}
	o := &AOI{Polygons: make([]geom.Polygonal, len(a.Polygons)), SR: dst}
	for i, p := range a.Polygons {
		g, err := p.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("covidsat: reprojecting AOI: %w", err)
		}
		o.Polygons[i] = g.(geom.Polygonal)
	}
	return o, nil
}

// ReadAOI reads an area of interest from a shapefile (.shp, with an
// optional .prj; WGS84 is assumed without one) or a GeoJSON file
// (.json or .geojson, always WGS84) holding a geometry, a feature, or
// a feature collection. Non-polygonal geometries are skipped.
func ReadAOI(path string) (*AOI, error) {
	path = os.ExpandEnv(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefileAOI(path)
	case ".json", ".geojson":
		return readGeoJSONAOI(path)
	default:
		return nil, fmt.Errorf("covidsat: unsupported AOI file type %s", path)
	}
}

func readShapefileAOI(path string) (*AOI, error) {
	f, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("covidsat: opening AOI shapefile %s: %w", path, err)
	}
	defer f.Close()
	a := new(AOI)
	if _, err := os.Stat(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"); err == nil {
		if a.SR, err = f.SR(); err != nil {
			return nil, fmt.Errorf("covidsat: reading AOI projection %s: %w", path, err)
		}
	}
	for {
		var rec struct{ geom.Geom }
		if ok := f.DecodeRow(&rec); !ok {
			break
		}
		if p, ok := rec.Geom.(geom.Polygonal); ok {
			a.Polygons = append(a.Polygons, p)
		}
	}
	if err := f.Error(); err != nil {
		return nil, fmt.Errorf("covidsat: reading AOI shapefile %s: %w", path, err)
	}
	return a, nil
}

type geoJSONObject struct {
	Type     string            `json:"type"`
	Geometry json.RawMessage   `json:"geometry"`
	Features []json.RawMessage `json:"features"`
}

func readGeoJSONAOI(path string) (*AOI, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("covidsat: reading AOI file: %w", err)
	}
	a := new(AOI)
	if err := decodeGeoJSON(b, a); err != nil {
		return nil, fmt.Errorf("covidsat: decoding AOI file %s: %w", path, err)
	}
	return a, nil
}

func decodeGeoJSON(b []byte, a *AOI) error {
	var o geoJSONObject
	if err := json.Unmarshal(b, &o); err != nil {
		return err
	}
	switch o.Type {
	case "FeatureCollection":
		for _, f := range o.Features {
			if err := decodeGeoJSON(f, a); err != nil {
				return err
			}
		}
		return nil
	case "Feature":
		if len(o.Geometry) == 0 || string(o.Geometry) == "null" {
			return nil
		}
		return decodeGeoJSON(o.Geometry, a)
	}
	g, err := geojson.Decode(b)
	if err != nil {
		return err
	}
	switch p := g.(type) {
	case geom.Polygon:
		a.Polygons = append(a.Polygons, p)
	case geom.MultiPolygon:
		a.Polygons = append(a.Polygons, p)
	}
	return nil
}
