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

import "errors"

var (
	// ErrMissingField is returned when a science file does not contain
	// a requested field, or the field cannot be interpreted as a grid.
	ErrMissingField = errors.New("covidsat: missing or malformed field")

	// ErrMissingQuality is returned when a quality field is configured
	// but is not present in the input file.
	ErrMissingQuality = errors.New("covidsat: missing quality field")

	// ErrEmptyAOI is returned when an area of interest has no polygons.
	ErrEmptyAOI = errors.New("covidsat: area of interest is empty")

	// ErrNoOverlap is returned when an area of interest does not
	// overlap the raster being clipped.
	ErrNoOverlap = errors.New("covidsat: area of interest does not overlap raster")

	// ErrIncompatibleTiles is returned when tiles to be mosaicked do not
	// share a coordinate reference system and pixel grid.
	ErrIncompatibleTiles = errors.New("covidsat: incompatible tiles")
)
