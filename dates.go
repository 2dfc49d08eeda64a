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
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the layout of dates in output file names.
const DateLayout = "2006-01-02"

var (
	no2Date    = regexp.MustCompile(`_(\d{4})m(\d{2})(\d{2})`)
	coDate     = regexp.MustCompile(`^AIRS\.(\d{4})\.(\d{2})\.(\d{2})`)
	julianDate = regexp.MustCompile(`(?i)[._-]a(\d{7})[._-]`)
)

// JulianToGregorian converts a YYYYDDD date string to YYYY-MM-DD.
func JulianToGregorian(julian string) (string, error) {
	t, err := time.Parse("2006002", julian)
	if err != nil {
		return "", fmt.Errorf("covidsat: invalid julian date %q: %w", julian, err)
	}
	return t.Format(DateLayout), nil
}

// JulianDateFromName returns the YYYYDDD acquisition date embedded in a
// VIIRS Black Marble file name, for example "VNP46A2.A2020001.h30v05..."
// or its preprocessed form "vnp46a2-a2020001-h30v05-...".
func JulianDateFromName(path string) (string, error) {
	m := julianDate.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", fmt.Errorf("covidsat: no acquisition date in file name %s", path)
	}
	return m[1], nil
}

// NO2DateFromName returns the date of an OMI/Aura OMNO2d file, for example
// "OMI-Aura_L3-OMNO2d_2020m0101_v003-2020m0103t...nc4".
func NO2DateFromName(path string) (time.Time, error) {
	return dateFromMatch(no2Date, path)
}

// CODateFromName returns the date of an Aqua/AIRS file, for example
// "AIRS.2020.01.01.L3.RetStd_IR001.v7.0.3.0.G20004123055.hdf.nc4".
func CODateFromName(path string) (time.Time, error) {
	return dateFromMatch(coDate, path)
}

func dateFromMatch(re *regexp.Regexp, path string) (time.Time, error) {
	m := re.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return time.Time{}, fmt.Errorf("covidsat: no date in file name %s", path)
	}
	t, err := time.Parse(DateLayout, strings.Join(m[1:], "-"))
	if err != nil {
		return time.Time{}, fmt.Errorf("covidsat: invalid date in file name %s: %w", path, err)
	}
	return t, nil
}
