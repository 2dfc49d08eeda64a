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

// Package geotiff reads and writes covidsat rasters as GeoTIFF files
// using GDAL.
package geotiff

import (
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/spatialmodel/covidsat"
)

var registerOnce sync.Once

// Codec is a covidsat.Codec for single-band float32 GeoTIFF files.
type Codec struct {
	// CreationOptions are passed to the GDAL GTiff driver, e.g. "COMPRESS=DEFLATE".
	CreationOptions []string
}

// New returns a Codec that writes tiled, deflate-compressed files.
func New() *Codec {
	registerOnce.Do(godal.RegisterAll)
	return &Codec{CreationOptions: []string{"TILED=YES", "COMPRESS=DEFLATE"}}
}

// Write writes r to a new GeoTIFF file at path.
func (c *Codec) Write(path string, r *covidsat.Raster) error {
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, r.Nx(), r.Ny(),
		godal.CreationOption(c.CreationOptions...))
	if err != nil {
		return fmt.Errorf("covidsat/geotiff: creating %s: %w", path, err)
	}
	if err := write(ds, r); err != nil {
		ds.Close()
		return fmt.Errorf("covidsat/geotiff: writing %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("covidsat/geotiff: closing %s: %w", path, err)
	}
	return nil
}

func write(ds *godal.Dataset, r *covidsat.Raster) error {
	if err := ds.SetGeoTransform([6]float64(r.Transform)); err != nil {
		return err
	}
	crs := r.CRS
	if crs == "" {
		crs = covidsat.WGS84
	}
	sr, err := spatialRef(crs)
	if err != nil {
		return err
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return err
	}
	for k, v := range r.Tags {
		if err := ds.SetMetadata(k, v); err != nil {
			return err
		}
	}
	band := ds.Bands()[0]
	if err := band.SetNoData(r.NoData); err != nil {
		return err
	}
	buf := make([]float32, len(r.Data.Elements))
	for i, v := range r.Data.Elements {
		buf[i] = float32(v)
	}
	return band.Write(0, 0, buf, r.Nx(), r.Ny())
}

func spatialRef(crs string) (*godal.SpatialRef, error) {
	if len(crs) > 0 && crs[0] == '+' {
		return godal.NewSpatialRefFromProj4(crs)
	}
	return godal.NewSpatialRefFromWKT(crs)
}

// Read reads the first band of the GeoTIFF (or any GDAL-readable raster)
// at path.
func (c *Codec) Read(path string) (*covidsat.Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("covidsat/geotiff: opening %s: %w", path, err)
	}
	defer ds.Close()
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("covidsat/geotiff: %s has no bands", path)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("covidsat/geotiff: %s: %w", path, err)
	}
	band := bands[0]
	nodata, ok := band.NoData()
	if !ok {
		nodata = math.NaN()
	}
	st := band.Structure()
	r := covidsat.NewRaster(st.SizeX, st.SizeY, covidsat.GeoTransform(gt), ds.Projection(), nodata)
	buf := make([]float32, st.SizeX*st.SizeY)
	if err := band.Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
		return nil, fmt.Errorf("covidsat/geotiff: reading %s: %w", path, err)
	}
	for i, v := range buf {
		r.Data.Elements[i] = float64(v)
	}
	r.NoData = float64(float32(nodata))
	for k, v := range ds.Metadatas() {
		r.Tags[k] = v
	}
	return r, nil
}
