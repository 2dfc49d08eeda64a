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
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
)

// QualityPolicy holds the VNP46A2 (VIIRS Black Marble daily
// BRDF-corrected nighttime lights) quality lookup tables and processing
// parameters.
type QualityPolicy struct {
	RadianceField         string
	MandatoryQualityField string
	CloudMaskField        string

	// RadianceScale converts stored radiance to nW/(cm² sr).
	RadianceScale float64

	// RadianceFill is the stored radiance fill value.
	RadianceFill float64

	// MandatoryQualityReject lists Mandatory_Quality_Flag codes to mask
	// (0 high quality main algorithm, 1 high quality gap-filled,
	// 2 poor quality, 255 no retrieval).
	MandatoryQualityReject []int

	// CloudDetectionReject lists QF_Cloud_Mask bits 6-7 codes to mask
	// (0 confident clear, 1 probably clear, 2 probably cloudy,
	// 3 confident cloudy).
	CloudDetectionReject []int

	// LandWaterReject lists QF_Cloud_Mask bits 1-3 codes to mask
	// (0 land and desert, 1 land no desert, 2 inland water,
	// 3 sea water, 5 coastal).
	LandWaterReject []int

	// OutlierWindow is the half-width in pixels of the neighborhood used
	// to flag outliers. Zero disables outlier removal.
	OutlierWindow int

	// OutlierMultiple is the number of neighborhood standard deviations
	// above the neighborhood mean beyond which a pixel is an outlier.
	OutlierMultiple float64
}

// DefaultQualityPolicy returns the standard VNP46A2 quality policy.
func DefaultQualityPolicy() *QualityPolicy {
	return &QualityPolicy{
		RadianceField:          "DNB_BRDF-Corrected_NTL",
		MandatoryQualityField:  "Mandatory_Quality_Flag",
		CloudMaskField:         "QF_Cloud_Mask",
		RadianceScale:          0.1,
		RadianceFill:           65535,
		MandatoryQualityReject: []int{2, 255},
		CloudDetectionReject:   []int{2, 3},
		LandWaterReject:        []int{3},
		OutlierMultiple:        3,
	}
}

// ReadQualityPolicy reads a TOML quality policy. Settings missing from
// the file keep their default values.
func ReadQualityPolicy(path string) (*QualityPolicy, error) {
	p := DefaultQualityPolicy()
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("covidsat: opening quality policy: %w", err)
	}
	defer f.Close()
	if _, err := toml.NewDecoder(f).Decode(p); err != nil {
		return nil, fmt.Errorf("covidsat: decoding quality policy %s: %w", path, err)
	}
	if p.OutlierWindow < 0 {
		return nil, fmt.Errorf("covidsat: quality policy OutlierWindow must not be negative")
	}
	return p, nil
}

// QABits extracts the value of bits start through end (inclusive,
// counting from the least significant bit) of a quality flag.
func QABits(v uint16, start, end uint) uint16 {
	mask := uint16(1)<<(end-start+1) - 1
	return (v >> start) & mask
}

// CloudDetection returns the cloud detection code (bits 6-7) of a
// QF_Cloud_Mask value.
func CloudDetection(qf uint16) uint16 { return QABits(qf, 6, 7) }

// LandWater returns the land/water background code (bits 1-3) of a
// QF_Cloud_Mask value.
func LandWater(qf uint16) uint16 { return QABits(qf, 1, 3) }

// Reject returns whether the pixel with the given raw radiance,
// mandatory quality code, and cloud mask value must be masked.
func (p *QualityPolicy) Reject(raw, mandatory float64, cloud uint16) bool {
	if math.IsNaN(raw) || raw == p.RadianceFill {
		return true
	}
	if contains(p.MandatoryQualityReject, int(mandatory)) {
		return true
	}
	if contains(p.CloudDetectionReject, int(CloudDetection(cloud))) {
		return true
	}
	return contains(p.LandWaterReject, int(LandWater(cloud)))
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// MaskNightLights applies p to the radiance, mandatory quality, and cloud
// mask arrays, which must share a shape. Masked pixels are NaN and the
// remaining radiance is scaled.
func (p *QualityPolicy) MaskNightLights(radiance, mandatory, cloud *sparse.DenseArray, t GeoTransform) (*Raster, error) {
	if !sameShape(radiance.Shape, mandatory.Shape) || !sameShape(radiance.Shape, cloud.Shape) {
		return nil, fmt.Errorf("%w: quality flag shapes %v and %v do not match radiance shape %v",
			ErrMissingField, mandatory.Shape, cloud.Shape, radiance.Shape)
	}
	r := NewRaster(radiance.Shape[1], radiance.Shape[0], t, WGS84, math.NaN())
	for k, v := range radiance.Elements {
		if p.Reject(v, mandatory.Elements[k], uint16(cloud.Elements[k])) {
			continue
		}
		r.Data.Elements[k] = v * p.RadianceScale
	}
	if p.OutlierWindow > 0 {
		r = RemoveOutliers(r, p.OutlierWindow, p.OutlierMultiple)
	}
	return r, nil
}

// RemoveOutliers returns a copy of r in which each valid pixel that exceeds
// mean + multiple*stddev of the valid pixels in the surrounding
// (2*window+1)² neighborhood (excluding the pixel itself) is set to
// no-data. Pixels with fewer than two valid neighbors are kept.
func RemoveOutliers(r *Raster, window int, multiple float64) *Raster {
	o := r.Copy()
	ny, nx := r.Ny(), r.Nx()
	neighbors := make([]float64, 0, (2*window+1)*(2*window+1))
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := r.Get(j, i)
			if r.IsNoData(v) {
				continue
			}
			neighbors = neighbors[:0]
			for jj := j - window; jj <= j+window; jj++ {
				for ii := i - window; ii <= i+window; ii++ {
					if jj < 0 || ii < 0 || jj >= ny || ii >= nx || (jj == j && ii == i) {
						continue
					}
					if w := r.Get(jj, ii); !r.IsNoData(w) {
						neighbors = append(neighbors, w)
					}
				}
			}
			if len(neighbors) < 2 {
				continue
			}
			mean, std := stat.MeanStdDev(neighbors, nil)
			if v > mean+multiple*std {
				o.Set(o.NoData, j, i)
			}
		}
	}
	return o
}

// PreprocessVNP46A2 reads a VNP46A2 file and returns the masked,
// scaled radiance. The georeference is built from the file's bounding
// coordinate attributes, falling back to its lat/lon variables.
func (p *QualityPolicy) PreprocessVNP46A2(path string) (*Raster, error) {
	f, err := OpenProduct(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fields := make([]*Field, 3)
	for i, name := range []string{p.RadianceField, p.MandatoryQualityField, p.CloudMaskField} {
		if fields[i], err = f.Field(name); err != nil {
			if i > 0 {
				return nil, fmt.Errorf("%w: %v", ErrMissingQuality, err)
			}
			return nil, err
		}
	}
	ny, nx := fields[0].Data.Shape[0], fields[0].Data.Shape[1]

	var t GeoTransform
	west, okW := f.FloatAttribute("WestBoundingCoord")
	east, okE := f.FloatAttribute("EastBoundingCoord")
	south, okS := f.FloatAttribute("SouthBoundingCoord")
	north, okN := f.FloatAttribute("NorthBoundingCoord")
	if okW && okE && okS && okN {
		t = NewGeoTransform(west, north, (east-west)/float64(nx), (north-south)/float64(ny))
	} else {
		var flip bool
		if t, flip, err = f.Grid(); err != nil {
			return nil, err
		}
		if flip {
			for _, fld := range fields {
				flipRows(fld.Data)
			}
		}
	}

	r, err := p.MaskNightLights(fields[0].Data, fields[1].Data, fields[2].Data, t)
	if err != nil {
		return nil, fmt.Errorf("covidsat: %s: %w", path, err)
	}
	r.Tags["source"] = filepath.Base(path)
	return r, nil
}

// NightLightsOutputName returns the output file name for a VNP46A2 input:
// the base name without its extension, lower-cased, with periods
// replaced by dashes, e.g. "VNP46A2.A2020001.h30v05.001.2020029061058.h5"
// becomes "vnp46a2-a2020001-h30v05-001-2020029061058<ext>".
func NightLightsOutputName(path, ext string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(strings.ToLower(base), ".", "-") + ext
}
