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
	"path/filepath"
	"sort"
	"strings"
)

// Codec reads and writes rasters in a file format.
type Codec interface {
	Read(path string) (*Raster, error)
	Write(path string, r *Raster) error
}

// Formats maps lower-case file extensions (including the leading period)
// to the codecs that handle them.
type Formats map[string]Codec

func (f Formats) codec(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	c, ok := f[ext]
	if !ok {
		return nil, fmt.Errorf("covidsat: unsupported raster format %q for %s", ext, path)
	}
	return c, nil
}

// Read reads the raster at path using the codec for its extension.
func (f Formats) Read(path string) (*Raster, error) {
	c, err := f.codec(path)
	if err != nil {
		return nil, err
	}
	return c.Read(path)
}

// Write writes r to path, creating the parent directory if necessary.
func (f Formats) Write(path string, r *Raster) error {
	c, err := f.codec(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("covidsat: creating output directory: %w", err)
	}
	return c.Write(path, r)
}

// List returns the sorted paths of the files in dir that have an
// extension handled by f.
func (f Formats) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("covidsat: listing %s: %w", dir, err)
	}
	var o []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := f[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			o = append(o, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(o)
	return o, nil
}
