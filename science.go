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
	"path/filepath"
	"time"
)

// Layer maps a field in a science file to an output layer name.
// An empty Name writes the layer directly into the output directory.
type Layer struct {
	Field, Name string
}

// ScienceProduct describes how to preprocess a gridded atmospheric
// composition product.
type ScienceProduct struct {
	Name   string
	Layers []Layer

	// Quality, if not nil, masks every layer other than the quality
	// field itself.
	Quality *QualityCheck

	// Units, if not nil, overrides the CF scale_factor and add_offset
	// attributes of each field.
	Units *UnitConversion

	// Derived holds additional layers computed per pixel from
	// the preprocessed fields. Keys are layer names and values are
	// expressions in terms of field names.
	Derived map[string]string

	// Date returns the acquisition date encoded in a file name.
	Date func(path string) (time.Time, error)
}

// NO2 is OMI/Aura daily gridded nitrogen dioxide (OMNO2d). Pixels with
// zero observation weight are masked.
func NO2() *ScienceProduct {
	return &ScienceProduct{
		Name: "no2",
		Layers: []Layer{
			{Field: "ColumnAmountNO2", Name: "total-all-conditions"},
			{Field: "ColumnAmountNO2CloudScreened", Name: "total-cloud-screened"},
			{Field: "ColumnAmountNO2Trop", Name: "tropospheric-all-conditions"},
			{Field: "ColumnAmountNO2TropCloudScreened", Name: "tropospheric-cloud-screened"},
			{Field: "Weight", Name: "pixel-weights"},
		},
		Quality: &QualityCheck{Field: "Weight", Min: math.SmallestNonzeroFloat64, Max: math.Inf(1)},
		Date:    NO2DateFromName,
	}
}

// CO is Aqua/AIRS daily gridded total column carbon monoxide (AIRS3STD).
func CO() *ScienceProduct {
	return &ScienceProduct{
		Name:   "co",
		Layers: []Layer{{Field: "TotCO_A"}},
		Date:   CODateFromName,
	}
}

// Preprocess reads the science file at path and returns the masked,
// unit-converted layers keyed by layer name. The returned rasters are
// north-up in EPSG:4326 with NaN as no-data.
func (sp *ScienceProduct) Preprocess(path string) (map[string]*Raster, error) {
	p, err := OpenProduct(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	t, flip, err := p.Grid()
	if err != nil {
		return nil, err
	}

	var quality *Field
	if sp.Quality != nil {
		if !p.Has(sp.Quality.Field) {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingQuality, sp.Quality.Field, path)
		}
		if quality, err = p.Field(sp.Quality.Field); err != nil {
			return nil, err
		}
		if flip {
			flipRows(quality.Data)
		}
	}

	out := make(map[string]*Raster, len(sp.Layers)+len(sp.Derived))
	byField := make(map[string]*Raster, len(sp.Layers))
	for _, l := range sp.Layers {
		f, err := p.Field(l.Field)
		if err != nil {
			return nil, err
		}
		if flip {
			flipRows(f.Data)
		}
		u := UnitsFromAttributes(f.Attributes)
		if sp.Units != nil {
			u = *sp.Units
		}
		var r *Raster
		if quality != nil && l.Field != sp.Quality.Field {
			r, err = MaskAndScale(f.Data, quality.Data, sp.Quality, FillValues(f.Attributes), u, t, WGS84, math.NaN())
		} else {
			r, err = MaskAndScale(f.Data, nil, nil, FillValues(f.Attributes), u, t, WGS84, math.NaN())
		}
		if err != nil {
			return nil, fmt.Errorf("covidsat: %s: %w", path, err)
		}
		r.Tags["source"] = filepath.Base(path)
		r.Tags["field"] = l.Field
		out[l.Name] = r
		byField[l.Field] = r
	}

	for name, expr := range sp.Derived {
		r, err := Derive(expr, byField)
		if err != nil {
			return nil, fmt.Errorf("covidsat: derived layer %s from %s: %w", name, path, err)
		}
		r.Tags["source"] = filepath.Base(path)
		r.Tags["expression"] = expr
		out[name] = r
	}
	return out, nil
}

// OutputName returns the relative output path of layer for the input
// file at path: <layer>/<YYYY-MM-DD><ext>.
func (sp *ScienceProduct) OutputName(path, layer, ext string) (string, error) {
	d, err := sp.Date(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(layer, d.Format(DateLayout)+ext), nil
}
