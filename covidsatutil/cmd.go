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


// Package covidsatutil contains the covidsat command-line interface.
package covidsatutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/covidsat"
	"github.com/spatialmodel/covidsat/order"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to covidsat.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of log messages
              (debug, info, warning, or error).`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile, if set, receives a copy of the log messages.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputFormat",
			usage: `
              OutputFormat is the file extension of the rasters to write:
              '.tif' for GeoTIFF or '.ncf' for NetCDF.`,
			defaultVal: ".tif",
			flagsets:   []*pflag.FlagSet{preprocCmd.PersistentFlags(), mosaicCmd.Flags()},
		},
		{
			name: "OutputBucket",
			usage: `
              OutputBucket, if set, is a blob storage location
              (e.g. 's3://bucket/prefix' or 'gs://bucket/prefix') that
              output files are copied to after they are written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{preprocCmd.PersistentFlags(), mosaicCmd.Flags(), clipCmd.Flags()},
		},
		{
			name: "Download.Dir",
			usage: `
              Download.Dir is the directory that downloaded files are saved in.`,
			defaultVal: "raw",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.Manifests",
			usage: `
              Download.Manifests lists order manifest files. Each line of
              a manifest holds a URL and, optionally, the name to save it as.`,
			defaultVal: []string{},
			shorthand:  "m",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.LAADSOrders",
			usage: `
              Download.LAADSOrders lists LAADS DAAC order numbers whose
              files should be downloaded.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.LAADSURL",
			usage: `
              Download.LAADSURL is the location of the LAADS DAAC order archive.`,
			defaultVal: order.LAADSOrders,
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.Token",
			usage: `
              Download.Token is the LAADS DAAC app key sent as a bearer token.
              It can also be set with the COVIDSAT_DOWNLOAD_TOKEN environment variable.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.TokenFile",
			usage: `
              Download.TokenFile is a file whose first line holds the LAADS DAAC
              app key. It is used when Download.Token is not set.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.Username",
			usage: `
              Download.Username is the NASA Earthdata login user name used
              for GES DISC downloads.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.Password",
			usage: `
              Download.Password is the NASA Earthdata login password.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Download.FailFast",
			usage: `
              Download.FailFast stops the download at the first failed file.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Preproc.InputDir",
			usage: `
              Preproc.InputDir is the directory holding the raw science files.`,
			defaultVal: "raw",
			flagsets:   []*pflag.FlagSet{preprocCmd.PersistentFlags()},
		},
		{
			name: "Preproc.OutputDir",
			usage: `
              Preproc.OutputDir is the directory that preprocessed rasters
              are written to.`,
			defaultVal: "processed",
			flagsets:   []*pflag.FlagSet{preprocCmd.PersistentFlags()},
		},
		{
			name: "Preproc.Derived",
			usage: `
              Preproc.Derived holds additional output layers computed from
              the product fields, as a map of layer names to expressions,
              e.g. {"stratospheric-all-conditions":"ColumnAmountNO2 - ColumnAmountNO2Trop"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{no2Cmd.Flags(), coCmd.Flags()},
		},
		{
			name: "Preproc.QualityPolicy",
			usage: `
              Preproc.QualityPolicy is a TOML file overriding the default
              VNP46A2 quality flag lookup tables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{ntlCmd.Flags()},
		},
		{
			name: "Preproc.OutlierWindow",
			usage: `
              Preproc.OutlierWindow is the half-width in pixels of the
              neighborhood used to remove radiance outliers. 0 disables
              outlier removal and -1 keeps the quality policy setting.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{ntlCmd.Flags()},
		},
		{
			name: "Mosaic.InputDir",
			usage: `
              Mosaic.InputDir is the directory holding the tiles to mosaic.`,
			defaultVal: "processed",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "Mosaic.OutputDir",
			usage: `
              Mosaic.OutputDir is the directory that daily mosaics are written to.`,
			defaultVal: "mosaic",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "Mosaic.MergeRule",
			usage: `
              Mosaic.MergeRule selects the value kept where tiles overlap:
              'first' or 'last'.`,
			defaultVal: "first",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "Clip.InputDir",
			usage: `
              Clip.InputDir is the directory holding the rasters to clip.`,
			defaultVal: "mosaic",
			flagsets:   []*pflag.FlagSet{clipCmd.Flags()},
		},
		{
			name: "Clip.OutputDir",
			usage: `
              Clip.OutputDir is the directory that clipped rasters are written to.`,
			defaultVal: "clipped",
			flagsets:   []*pflag.FlagSet{clipCmd.Flags()},
		},
		{
			name: "AOI",
			usage: `
              AOI is a shapefile or GeoJSON file holding the area of interest.
              It is required by clip and optional for mosaic.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags(), clipCmd.Flags()},
		},
		{
			name: "AllTouched",
			usage: `
              AllTouched keeps every pixel that overlaps the area of interest.
              If false, only pixels whose centers are inside it are kept.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags(), clipCmd.Flags()},
		},
		{
			name: "Crop",
			usage: `
              Crop shrinks clipped rasters to the extent of the area of interest.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags(), clipCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Configuration environment variables look like COVIDSAT_DOWNLOAD_TOKEN.
	Cfg.SetEnvPrefix("COVIDSAT")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				json.NewEncoder(b).Encode(v)
				set.StringP(option.name, option.shorthand, strings.TrimSpace(b.String()), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(downloadCmd)
	Root.AddCommand(preprocCmd)
	preprocCmd.AddCommand(no2Cmd)
	preprocCmd.AddCommand(coCmd)
	preprocCmd.AddCommand(ntlCmd)
	Root.AddCommand(mosaicCmd)
	Root.AddCommand(clipCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("covidsat: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "covidsat",
	Short: "Download and preprocess satellite observations.",
	Long: `covidsat downloads and preprocesses satellite remote sensing products
(OMI NO₂, AIRS CO, and VIIRS Black Marble nighttime lights) into daily
analysis-ready rasters. Use the subcommands specified below to access
each processing stage.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'COVIDSAT_var' where 'var' is the
name of the variable to be set, with periods replaced by underscores.
Paths are allowed to contain environment variables.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of covidsat.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("covidsat v%s\n", covidsat.Version)
	},
	DisableAutoGenTag: true,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download ordered files",
	Long: `download fetches the files listed in order manifests and LAADS DAAC
orders into the download directory. Files that already exist are skipped,
so an interrupted download can be resumed by running it again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd.OutOrStdout(), Cfg.GetString("LogLevel"), Cfg.GetString("LogFile"))
		if err != nil {
			return err
		}
		defer closeLog()
		creds, err := credentials(Cfg)
		if err != nil {
			return err
		}
		return Download(cmd.Context(), log, cmd.OutOrStdout(),
			expandPath(Cfg.GetString("Download.Dir")),
			expandStringSlice(Cfg.GetStringSlice("Download.Manifests")),
			Cfg.GetStringSlice("Download.LAADSOrders"),
			Cfg.GetString("Download.LAADSURL"),
			creds,
			Cfg.GetBool("Download.FailFast"),
		)
	},
	DisableAutoGenTag: true,
}

var preprocCmd = &cobra.Command{
	Use:   "preproc",
	Short: "Preprocess raw science files",
	Long: `preproc masks low-quality pixels, converts units, and georeferences
raw science files, writing one raster per output layer and day. Use the
subcommands specified below to choose a product.`,
	DisableAutoGenTag: true,
}

var no2Cmd = &cobra.Command{
	Use:   "no2",
	Short: "Preprocess OMI/Aura NO₂ (OMNO2d) files",
	Long: `no2 preprocesses OMI/Aura daily gridded NO₂ files. Pixels with zero
observation weight are masked. Each field is written to its own
subdirectory of the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return preprocScience(cmd, covidsat.NO2())
	},
	DisableAutoGenTag: true,
}

var coCmd = &cobra.Command{
	Use:   "co",
	Short: "Preprocess Aqua/AIRS CO (AIRS3STD) files",
	Long:  `co preprocesses Aqua/AIRS daily gridded total column CO files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return preprocScience(cmd, covidsat.CO())
	},
	DisableAutoGenTag: true,
}

func preprocScience(cmd *cobra.Command, sp *covidsat.ScienceProduct) error {
	log, closeLog, err := newLogger(cmd.OutOrStdout(), Cfg.GetString("LogLevel"), Cfg.GetString("LogFile"))
	if err != nil {
		return err
	}
	defer closeLog()
	derived, err := GetStringMapString("Preproc.Derived", Cfg)
	if err != nil {
		return err
	}
	if len(derived) > 0 {
		sp.Derived = derived
	}
	ext, err := checkFormat(Cfg.GetString("OutputFormat"))
	if err != nil {
		return err
	}
	return PreprocScience(cmd.Context(), log, cmd.OutOrStdout(), sp,
		expandPath(Cfg.GetString("Preproc.InputDir")),
		expandPath(Cfg.GetString("Preproc.OutputDir")),
		ext,
		expandPath(Cfg.GetString("OutputBucket")),
	)
}

var ntlCmd = &cobra.Command{
	Use:   "ntl",
	Short: "Preprocess VIIRS Black Marble nighttime lights (VNP46A2) files",
	Long: `ntl preprocesses VNP46A2 daily BRDF-corrected nighttime lights tiles.
Fill values, poor-quality retrievals, cloudy pixels, and sea water
are masked as specified by the quality policy, and radiance is scaled
to nW/(cm² sr).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd.OutOrStdout(), Cfg.GetString("LogLevel"), Cfg.GetString("LogFile"))
		if err != nil {
			return err
		}
		defer closeLog()
		p, err := qualityPolicy(Cfg.GetString("Preproc.QualityPolicy"), Cfg.GetInt("Preproc.OutlierWindow"))
		if err != nil {
			return err
		}
		ext, err := checkFormat(Cfg.GetString("OutputFormat"))
		if err != nil {
			return err
		}
		return PreprocNightLights(cmd.Context(), log, cmd.OutOrStdout(), p,
			expandPath(Cfg.GetString("Preproc.InputDir")),
			expandPath(Cfg.GetString("Preproc.OutputDir")),
			ext,
			expandPath(Cfg.GetString("OutputBucket")),
		)
	},
	DisableAutoGenTag: true,
}

var mosaicCmd = &cobra.Command{
	Use:   "mosaic",
	Short: "Mosaic tiles by acquisition date",
	Long: `mosaic groups the tiles in the input directory by the acquisition
date in their file names, combines each group into one raster, and,
if an area of interest is given, clips the result to it. Mosaics are
written as YYYY-MM-DD files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd.OutOrStdout(), Cfg.GetString("LogLevel"), Cfg.GetString("LogFile"))
		if err != nil {
			return err
		}
		defer closeLog()
		rule, err := covidsat.ParseMergeRule(Cfg.GetString("Mosaic.MergeRule"))
		if err != nil {
			return err
		}
		ext, err := checkFormat(Cfg.GetString("OutputFormat"))
		if err != nil {
			return err
		}
		return MosaicTiles(cmd.Context(), log, cmd.OutOrStdout(),
			expandPath(Cfg.GetString("Mosaic.InputDir")),
			expandPath(Cfg.GetString("Mosaic.OutputDir")),
			ext, rule,
			expandPath(Cfg.GetString("AOI")),
			clipOptions(Cfg),
			expandPath(Cfg.GetString("OutputBucket")),
		)
	},
	DisableAutoGenTag: true,
}

var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Clip rasters to an area of interest",
	Long: `clip sets every pixel outside the area of interest to no-data in
each raster of the input directory, writing the results under the same
names in the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger(cmd.OutOrStdout(), Cfg.GetString("LogLevel"), Cfg.GetString("LogFile"))
		if err != nil {
			return err
		}
		defer closeLog()
		return ClipRasters(cmd.Context(), log, cmd.OutOrStdout(),
			expandPath(Cfg.GetString("Clip.InputDir")),
			expandPath(Cfg.GetString("Clip.OutputDir")),
			expandPath(Cfg.GetString("AOI")),
			clipOptions(Cfg),
			expandPath(Cfg.GetString("OutputBucket")),
		)
	},
	DisableAutoGenTag: true,
}
