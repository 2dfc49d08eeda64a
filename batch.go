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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Result records the outcome of processing one input.
type Result struct {
	Input   string
	Outputs []string
	Err     error
}

// Summary holds the results of a batch.
type Summary struct {
	Results []Result
}

// Failed returns the results that ended in an error.
func (s *Summary) Failed() []Result {
	var o []Result
	for _, r := range s.Results {
		if r.Err != nil {
			o = append(o, r)
		}
	}
	return o
}

// Outputs returns the number of files written.
func (s *Summary) Outputs() int {
	n := 0
	for _, r := range s.Results {
		n += len(r.Outputs)
	}
	return n
}

// Batch calls fn for each input in order. An error from fn is logged
// and recorded, and processing continues with the next input. Batch
// stops early only if ctx is canceled.
func Batch(ctx context.Context, log logrus.FieldLogger, inputs []string, fn func(input string) ([]string, error)) (*Summary, error) {
	s := &Summary{Results: make([]Result, 0, len(inputs))}
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		start := time.Now()
		out, err := fn(in)
		s.Results = append(s.Results, Result{Input: in, Outputs: out, Err: err})
		fields := logrus.Fields{"input": filepath.Base(in), "duration": time.Since(start).Round(time.Millisecond)}
		if err != nil {
			log.WithFields(fields).WithError(err).Error("processing failed")
			continue
		}
		log.WithFields(fields).WithField("outputs", len(out)).Info("processed")
	}
	return s, nil
}

// ListFiles returns the sorted paths of the files in dir whose names end
// in one of the given extensions (case insensitive).
func ListFiles(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("covidsat: listing %s: %w", dir, err)
	}
	var o []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		for _, ext := range exts {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				o = append(o, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(o)
	return o, nil
}

// ScienceExtensions are the file name extensions of raw science files.
var ScienceExtensions = []string{".nc4", ".nc", ".he5", ".h5", ".hdf"}

// PreprocessScienceDir preprocesses every science file in inDir, writing
// <outDir>/<layer>/<YYYY-MM-DD><ext> for each layer of sp.
func PreprocessScienceDir(ctx context.Context, log logrus.FieldLogger, sp *ScienceProduct,
	inDir, outDir, ext string, formats Formats) (*Summary, error) {
	files, err := ListFiles(inDir, ScienceExtensions...)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"product": sp.Name, "files": len(files)}).Info("preprocessing")
	return Batch(ctx, log, files, func(path string) ([]string, error) {
		layers, err := sp.Preprocess(path)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(layers))
		for n := range layers {
			names = append(names, n)
		}
		sort.Strings(names)
		var outputs []string
		for _, n := range names {
			rel, err := sp.OutputName(path, n, ext)
			if err != nil {
				return outputs, err
			}
			out := filepath.Join(outDir, rel)
			if err := formats.Write(out, layers[n]); err != nil {
				return outputs, err
			}
			outputs = append(outputs, out)
		}
		return outputs, nil
	})
}

// PreprocessNightLightsDir preprocesses every VNP46A2 file in inDir.
func PreprocessNightLightsDir(ctx context.Context, log logrus.FieldLogger, p *QualityPolicy,
	inDir, outDir, ext string, formats Formats) (*Summary, error) {
	files, err := ListFiles(inDir, ".h5")
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"product": "vnp46a2", "files": len(files)}).Info("preprocessing")
	return Batch(ctx, log, files, func(path string) ([]string, error) {
		r, err := p.PreprocessVNP46A2(path)
		if err != nil {
			return nil, err
		}
		out := filepath.Join(outDir, NightLightsOutputName(path, ext))
		if err := formats.Write(out, r); err != nil {
			return nil, err
		}
		return []string{out}, nil
	})
}

// GroupByDate groups tile paths by the Julian acquisition date in their
// names. Paths within a group are sorted. Files without a date are
// returned separately.
func GroupByDate(paths []string) (groups map[string][]string, undated []string) {
	groups = make(map[string][]string)
	for _, p := range paths {
		d, err := JulianDateFromName(p)
		if err != nil {
			undated = append(undated, p)
			continue
		}
		groups[d] = append(groups[d], p)
	}
	for _, g := range groups {
		sort.Strings(g)
	}
	return groups, undated
}

// MosaicDir mosaics the tiles in inDir by acquisition date and, if aoi is
// not nil, clips each mosaic, writing <outDir>/<YYYY-MM-DD><ext>.
func MosaicDir(ctx context.Context, log logrus.FieldLogger, inDir, outDir, ext string, formats Formats,
	rule MergeRule, aoi *AOI, opts ClipOptions) (*Summary, error) {
	files, err := formats.List(inDir)
	if err != nil {
		return nil, err
	}
	groups, undated := GroupByDate(files)
	for _, u := range undated {
		log.WithField("input", filepath.Base(u)).Warn("no acquisition date in file name; skipping")
	}
	dates := make([]string, 0, len(groups))
	for d := range groups {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	log.WithFields(logrus.Fields{"dates": len(dates), "tiles": len(files) - len(undated)}).Info("mosaicking")
	return Batch(ctx, log, dates, func(julian string) ([]string, error) {
		date, err := JulianToGregorian(julian)
		if err != nil {
			return nil, err
		}
		tiles := make([]*Raster, len(groups[julian]))
		for i, p := range groups[julian] {
			if tiles[i], err = formats.Read(p); err != nil {
				return nil, err
			}
		}
		m, err := Mosaic(rule, tiles...)
		if err != nil {
			return nil, fmt.Errorf("covidsat: mosaicking %s: %w", date, err)
		}
		if aoi != nil {
			if m, err = Clip(m, aoi, opts); err != nil {
				return nil, fmt.Errorf("covidsat: clipping %s: %w", date, err)
			}
		}
		m.Tags["date"] = date
		out := filepath.Join(outDir, date+ext)
		if err := formats.Write(out, m); err != nil {
			return nil, err
		}
		return []string{out}, nil
	})
}

// ClipDir clips every raster in inDir to aoi, writing each result under
// the same name in outDir.
func ClipDir(ctx context.Context, log logrus.FieldLogger, inDir, outDir string, formats Formats,
	aoi *AOI, opts ClipOptions) (*Summary, error) {
	files, err := formats.List(inDir)
	if err != nil {
		return nil, err
	}
	log.WithField("files", len(files)).Info("clipping")
	return Batch(ctx, log, files, func(path string) ([]string, error) {
		r, err := formats.Read(path)
		if err != nil {
			return nil, err
		}
		c, err := Clip(r, aoi, opts)
		if err != nil {
			return nil, err
		}
		out := filepath.Join(outDir, filepath.Base(path))
		if err := formats.Write(out, c); err != nil {
			return nil, err
		}
		return []string{out}, nil
	})
}
