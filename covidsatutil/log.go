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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// newLogger returns a logger writing to w and, if logFile is not empty,
// to logFile. Every message carries the ID of this run. The returned
// function closes the log file.
func newLogger(w io.Writer, level, logFile string) (*logrus.Entry, func() error, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, nil, fmt.Errorf("covidsat: invalid LogLevel: %v", err)
	}
	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	})
	closer := func() error { return nil }
	if logFile = expandPath(logFile); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("covidsat: problem creating log file: %v", err)
		}
		w = io.MultiWriter(w, f)
		closer = f.Close
	}
	l.SetOutput(w)
	return l.WithField("run", uuid.NewString()), closer, nil
}

// lockFileName is the lock file held in an output directory while a
// run writes to it.
const lockFileName = ".covidsat.lock"

// ErrLocked is returned when another run is writing to the same directory.
var ErrLocked = errors.New("covidsat: output directory is in use by another run")

// lockDir creates dir if necessary and takes an exclusive lock on it.
// The caller must call Unlock on the returned lock when finished.
func lockDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("covidsat: creating output directory: %v", err)
	}
	l := flock.New(filepath.Join(dir, lockFileName))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("covidsat: locking %s: %v", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return l, nil
}
