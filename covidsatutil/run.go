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


package covidsatutil

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/covidsat"
	"github.com/spatialmodel/covidsat/cloud"
	"github.com/spatialmodel/covidsat/order"
)

// Download fetches the files listed in the manifest files and the LAADS
// DAAC orders into dir and prints a report to w. It returns an error if
// any file could not be downloaded.
func Download(ctx context.Context, log logrus.FieldLogger, w io.Writer, dir string, manifests, orders []string,
	laadsURL string, creds order.Credentials, failFast bool) error {
	if len(manifests) == 0 && len(orders) == 0 {
		return fmt.Errorf("covidsat: nothing to download; specify Download.Manifests or Download.LAADSOrders")
	}
	lock, err := lockDir(dir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	d, err := order.NewDownloader(dir, creds, log)
	if err != nil {
		return err
	}
	d.FailFast = failFast

	var m order.Manifest
	for _, f := range manifests {
		mm, err := order.ReadManifest(f)
		if err != nil {
			return err
		}
		m = append(m, mm...)
	}
	for _, id := range orders {
		mm, err := d.LAADSManifest(ctx, laadsURL, id)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"order": id, "files": len(mm)}).Info("listed LAADS order")
		m = append(m, mm...)
	}

	rep, err := d.Download(ctx, m)
	if rep != nil {
		printReport(w, rep)
	}
	if err != nil {
		return err
	}
	if len(rep.Failed) > 0 {
		return fmt.Errorf("covidsat: %d of %d downloads failed", len(rep.Failed), len(m))
	}
	return nil
}

// PreprocScience preprocesses the science files in inDir as product sp.
func PreprocScience(ctx context.Context, log logrus.FieldLogger, w io.Writer, sp *covidsat.ScienceProduct,
	inDir, outDir, ext, bucket string) error {
	return run(ctx, log, w, "preproc "+sp.Name, outDir, bucket, func(formats covidsat.Formats) (*covidsat.Summary, error) {
		return covidsat.PreprocessScienceDir(ctx, log, sp, inDir, outDir, ext, formats)
	})
}

// PreprocNightLights preprocesses the VNP46A2 files in inDir.
func PreprocNightLights(ctx context.Context, log logrus.FieldLogger, w io.Writer, p *covidsat.QualityPolicy,
	inDir, outDir, ext, bucket string) error {
	return run(ctx, log, w, "preproc ntl", outDir, bucket, func(formats covidsat.Formats) (*covidsat.Summary, error) {
		return covidsat.PreprocessNightLightsDir(ctx, log, p, inDir, outDir, ext, formats)
	})
}

// MosaicTiles mosaics the tiles in inDir by date. If aoiFile is not empty,
// each mosaic is clipped to the area of interest it holds.
func MosaicTiles(ctx context.Context, log logrus.FieldLogger, w io.Writer, inDir, outDir, ext string,
	rule covidsat.MergeRule, aoiFile string, opts covidsat.ClipOptions, bucket string) error {
	var aoi *covidsat.AOI
	if aoiFile != "" {
		var err error
		if aoi, err = covidsat.ReadAOI(aoiFile); err != nil {
			return err
		}
	}
	return run(ctx, log, w, "mosaic", outDir, bucket, func(formats covidsat.Formats) (*covidsat.Summary, error) {
		return covidsat.MosaicDir(ctx, log, inDir, outDir, ext, formats, rule, aoi, opts)
	})
}

// ClipRasters clips the rasters in inDir to the area of interest in aoiFile.
func ClipRasters(ctx context.Context, log logrus.FieldLogger, w io.Writer, inDir, outDir, aoiFile string,
	opts covidsat.ClipOptions, bucket string) error {
	if aoiFile == "" {
		return fmt.Errorf("covidsat: clip requires an AOI file")
	}
	aoi, err := covidsat.ReadAOI(aoiFile)
	if err != nil {
		return err
	}
	return run(ctx, log, w, "clip", outDir, bucket, func(formats covidsat.Formats) (*covidsat.Summary, error) {
		return covidsat.ClipDir(ctx, log, inDir, outDir, formats, aoi, opts)
	})
}

// run holds the lock on outDir while batch runs, uploads the outputs to
// bucket if it is not empty, and prints a summary to w. It returns an
// error if any input failed.
func run(ctx context.Context, log logrus.FieldLogger, w io.Writer, title, outDir, bucket string,
	batch func(covidsat.Formats) (*covidsat.Summary, error)) error {
	lock, err := lockDir(outDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	var up *cloud.Uploader
	if bucket != "" {
		if up, err = cloud.NewUploader(ctx, bucket, outDir); err != nil {
			return err
		}
		defer up.Close()
	}

	s, err := batch(outputFormats())
	if s == nil {
		return err
	}
	if up != nil {
		for i, r := range s.Results {
			for _, f := range r.Outputs {
				if uerr := up.Upload(ctx, f); uerr != nil && s.Results[i].Err == nil {
					s.Results[i].Err = uerr
				}
			}
		}
		log.WithField("bucket", bucket).Info("uploaded outputs")
	}
	printSummary(w, title, s)
	if err != nil {
		return err
	}
	if n := len(s.Failed()); n > 0 {
		return fmt.Errorf("covidsat: %d of %d inputs failed", n, len(s.Results))
	}
	return nil
}
