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

// Package order downloads the files of a satellite data web order, such as
// a NASA GES DISC subset order or a LAADS DAAC archive order.
package order

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
)

// Entry is one file of a web order.
type Entry struct {
	URL string

	// Name is the local file name.
	Name string
}

// Manifest is an ordered list of order entries.
type Manifest []Entry

// NewEntry returns the entry for rawURL, naming the local file after the
// last element of the URL path.
func NewEntry(rawURL string) (Entry, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Entry{}, fmt.Errorf("order: invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" {
		return Entry{}, fmt.Errorf("order: URL %q has no scheme", rawURL)
	}
	name := path.Base(u.Path)
	if err := checkName(name); err != nil {
		return Entry{}, fmt.Errorf("order: cannot determine a file name for %q: %w", rawURL, err)
	}
	return Entry{URL: rawURL, Name: name}, nil
}

// ParseManifest reads a manifest with one entry per line: a URL optionally
// followed by whitespace and a local file name. Blank lines and lines
// starting with '#' are ignored.
func ParseManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for s.Scan() {
		line++
		l := strings.TrimSpace(s.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		fields := strings.Fields(l)
		e, err := NewEntry(fields[0])
		if err != nil {
			return nil, fmt.Errorf("order: manifest line %d: %w", line, err)
		}
		switch len(fields) {
		case 1:
		case 2:
			if err := checkName(fields[1]); err != nil {
				return nil, fmt.Errorf("order: manifest line %d: %w", line, err)
			}
			e.Name = fields[1]
		default:
			return nil, fmt.Errorf("order: manifest line %d: too many fields", line)
		}
		m = append(m, e)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("order: reading manifest: %w", err)
	}
	return m, nil
}

// checkName returns an error unless name is a plain file name.
func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..", name == "/":
		return fmt.Errorf("invalid file name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("file name %q must not contain a path", name)
	}
	return nil
}

// ReadManifest reads the manifest file at path.
func ReadManifest(path string) (Manifest, error) {
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("order: opening manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}
