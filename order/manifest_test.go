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

package order

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

func TestParseManifest(t *testing.T) {
	const in = `# GES DISC subset order
https://acdisc.gesdisc.eosdis.nasa.gov/opendap/HDF-EOS5/Aura_OMI_Level3/OMNO2d.003/2020/OMI-Aura_L3-OMNO2d_2020m0101_v003-2020m0103t003254.he5.nc4?ColumnAmountNO2

https://airsl3.gesdisc.eosdis.nasa.gov/data/AIRS3STD.7.0/2020/AIRS.2020.01.01.L3.RetStd_IR001.v7.0.3.0.G20004123055.hdf   co-2020-01-01.hdf
s3://orders/laads/501/VNP46A2.A2020001.h30v05.001.2020029061058.h5
`
	m, err := ParseManifest(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := Manifest{
		{
			URL:  "https://acdisc.gesdisc.eosdis.nasa.gov/opendap/HDF-EOS5/Aura_OMI_Level3/OMNO2d.003/2020/OMI-Aura_L3-OMNO2d_2020m0101_v003-2020m0103t003254.he5.nc4?ColumnAmountNO2",
			Name: "OMI-Aura_L3-OMNO2d_2020m0101_v003-2020m0103t003254.he5.nc4",
		},
		{
			URL:  "https://airsl3.gesdisc.eosdis.nasa.gov/data/AIRS3STD.7.0/2020/AIRS.2020.01.01.L3.RetStd_IR001.v7.0.3.0.G20004123055.hdf",
			Name: "co-2020-01-01.hdf",
		},
		{
			URL:  "s3://orders/laads/501/VNP46A2.A2020001.h30v05.001.2020029061058.h5",
			Name: "VNP46A2.A2020001.h30v05.001.2020029061058.h5",
		},
	}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("manifest differs: %v", pretty.Diff(m, want))
	}
}

func TestParseManifest_errors(t *testing.T) {
	for name, in := range map[string]string{
		"no scheme":    "example.com/file.nc4",
		"no file name": "https://example.com/",
		"path name":    "https://example.com/a.nc4 ../a.nc4",
		"extra fields": "https://example.com/a.nc4 a.nc4 b.nc4",
		"dot name":     "https://example.com/a.nc4 .",
		"parent name":  "https://example.com/a.nc4 ..",
		"parent url":   "https://example.com/data/..",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader("# order\n" + in))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("error %q lacks the line number", err)
			}
		})
	}
}
