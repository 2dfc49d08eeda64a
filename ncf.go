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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// NCFDataVersion is the version of the NetCDF raster layout written by NCF.
const NCFDataVersion = "1.0.0"

// NCF reads and writes rasters as NetCDF classic files holding a single
// float variable "data" with dimensions (y, x) and the georeference
// stored as global attributes.
type NCF struct{}

// Write writes r to a new file at path.
func (NCF) Write(path string, r *Raster) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("covidsat: creating %s: %w", path, err)
	}
	if err := writeRasterNCF(w, r); err != nil {
		w.Close()
		os.Remove(path)
		return fmt.Errorf("covidsat: writing %s: %w", path, err)
	}
	return w.Close()
}

func writeRasterNCF(w *os.File, r *Raster) error {
	h := cdf.NewHeader([]string{"y", "x"}, []int{r.Ny(), r.Nx()})
	h.AddAttribute("", "comment", "covidsat raster")
	h.AddAttribute("", "data_version", NCFDataVersion)
	h.AddAttribute("", "geotransform", r.Transform[:])
	h.AddAttribute("", "crs", r.CRS)
	h.AddAttribute("", "nodata", []float64{r.NoData})

	// Sort the tag names so they write in the same order every time.
	tags := make([]string, 0, len(r.Tags))
	for k := range r.Tags {
		tags = append(tags, k)
	}
	sort.Strings(tags)
	h.AddVariable("data", []string{"y", "x"}, []float32{0})
	for _, k := range tags {
		h.AddAttribute("data", k, r.Tags[k])
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	return writeNCF(f, "data", r.Data)
}

// writeNCF writes data to variable Var of f as float32 values.
func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}

	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	_, err := f.Writer(Var, start, end).Write(data32)
	return err
}

// Read reads a raster written by Write.
func (NCF) Read(path string) (*Raster, error) {
	rf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("covidsat: opening %s: %w", path, err)
	}
	defer rf.Close()
	f, err := cdf.Open(rf)
	if err != nil {
		return nil, fmt.Errorf("covidsat: reading %s: %w", path, err)
	}
	if v, ok := f.Header.GetAttribute("", "data_version").(string); !ok || v != NCFDataVersion {
		return nil, fmt.Errorf("covidsat: %s data version %v is incompatible with the required version %s",
			path, f.Header.GetAttribute("", "data_version"), NCFDataVersion)
	}
	gt, ok := f.Header.GetAttribute("", "geotransform").([]float64)
	if !ok || len(gt) != 6 {
		return nil, fmt.Errorf("%w: %s has no valid geotransform", ErrMissingField, path)
	}
	nodata, ok := f.Header.GetAttribute("", "nodata").([]float64)
	if !ok || len(nodata) != 1 {
		return nil, fmt.Errorf("%w: %s has no nodata attribute", ErrMissingField, path)
	}
	crs, _ := f.Header.GetAttribute("", "crs").(string)

	dims := f.Header.Lengths("data")
	if len(dims) != 2 {
		return nil, fmt.Errorf("%w: %s data variable has shape %v", ErrMissingField, path, dims)
	}
	var t GeoTransform
	copy(t[:], gt)
	// Values are stored in single precision, so the sentinel must be too.
	r := NewRaster(dims[1], dims[0], t, crs, float64(float32(nodata[0])))
	tmp := make([]float32, len(r.Data.Elements))
	if _, err := f.Reader("data", nil, nil).Read(tmp); err != nil {
		return nil, fmt.Errorf("covidsat: reading %s: %w", path, err)
	}
	for i, v := range tmp {
		r.Data.Elements[i] = float64(v)
	}
	for _, a := range f.Header.Attributes("data") {
		if s, ok := f.Header.GetAttribute("data", a).(string); ok {
			r.Tags[a] = s
		}
	}
	return r, nil
}
