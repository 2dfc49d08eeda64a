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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/covidsat"
	"github.com/spatialmodel/covidsat/geotiff"
	"github.com/spatialmodel/covidsat/order"
	"github.com/spf13/cast"
)

// expandPath expands the environment variables in a path.
func expandPath(s string) string { return os.ExpandEnv(strings.TrimSpace(s)) }

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		o := make(map[string]string)
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("covidsat: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		o, err := cast.ToStringMapStringE(i)
		if err != nil {
			return nil, fmt.Errorf("covidsat: %s: %v", varName, err)
		}
		return o, nil
	}
}

// outputFormats returns the raster formats covidsat can write.
func outputFormats() covidsat.Formats {
	tif := geotiff.New()
	return covidsat.Formats{
		".tif":  tif,
		".tiff": tif,
		".ncf":  covidsat.NCF{},
	}
}

// checkFormat normalizes an output file extension and makes sure it
// is supported.
func checkFormat(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if _, ok := outputFormats()[ext]; !ok {
		return ext, fmt.Errorf("covidsat: OutputFormat must be '.tif' or '.ncf' but is set to '%s'", ext)
	}
	return ext, nil
}

// credentials returns the download credentials. The LAADS token comes
// from Download.Token (or the COVIDSAT_DOWNLOAD_TOKEN environment
// variable) or else the first line of Download.TokenFile.
func credentials(cfg *viper.Viper) (order.Credentials, error) {
	c := order.Credentials{
		Token:    strings.TrimSpace(cfg.GetString("Download.Token")),
		Username: os.ExpandEnv(cfg.GetString("Download.Username")),
		Password: os.ExpandEnv(cfg.GetString("Download.Password")),
	}
	if c.Token == "" {
		if f := expandPath(cfg.GetString("Download.TokenFile")); f != "" {
			tok, err := order.ReadToken(f)
			if err != nil {
				return c, err
			}
			c.Token = tok
		}
	}
	return c, nil
}

// qualityPolicy returns the VNP46A2 quality policy read from file, or the
// default policy if file is empty. A non-negative window overrides the
// outlier window of the policy.
func qualityPolicy(file string, window int) (*covidsat.QualityPolicy, error) {
	p := covidsat.DefaultQualityPolicy()
	if file = expandPath(file); file != "" {
		var err error
		if p, err = covidsat.ReadQualityPolicy(file); err != nil {
			return nil, err
		}
	}
	if window >= 0 {
		p.OutlierWindow = window
	}
	return p, nil
}

func clipOptions(cfg *viper.Viper) covidsat.ClipOptions {
	return covidsat.ClipOptions{
		AllTouched: cfg.GetBool("AllTouched"),
		Crop:       cfg.GetBool("Crop"),
	}
}
