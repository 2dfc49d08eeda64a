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
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/covidsat/cloud"
)

// ErrHTTPStatus is returned when a server responds with a non-success status.
var ErrHTTPStatus = errors.New("order: unsuccessful HTTP status")

// EarthdataHost is the NASA Earthdata login server that GES DISC
// downloads redirect to.
const EarthdataHost = "urs.earthdata.nasa.gov"

// Credentials authenticate requests to NASA data servers.
type Credentials struct {
	// Token is sent as a bearer token (LAADS DAAC app key).
	Token string

	// Username and Password are sent to the Earthdata login server.
	Username, Password string
}

// Downloader fetches order entries into a directory. Entries whose file
// already exists in the directory are skipped without contacting the
// server. Files are written to a temporary name and renamed once
// complete, so a file in Dir is never partially written.
type Downloader struct {
	Dir         string
	Client      *http.Client
	Credentials Credentials

	// FailFast stops the run at the first failed entry.
	FailFast bool

	Log logrus.FieldLogger
}

// NewDownloader returns a Downloader for dir with an HTTP client that keeps
// session cookies and sends Earthdata credentials on login redirects.
func NewDownloader(dir string, creds Credentials, log logrus.FieldLogger) (*Downloader, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	d := &Downloader{Dir: dir, Credentials: creds, Log: log}
	d.Client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("order: stopped after 10 redirects")
			}
			d.authorizeRedirect(req)
			return nil
		},
	}
	return d, nil
}

func (d *Downloader) authorizeRedirect(req *http.Request) {
	if req.URL.Hostname() == EarthdataHost && d.Credentials.Username != "" {
		req.SetBasicAuth(d.Credentials.Username, d.Credentials.Password)
	}
}

// Failure records an entry that could not be downloaded.
type Failure struct {
	Entry Entry
	Err   error
}

// Report summarizes a download run.
type Report struct {
	Downloaded []string
	Skipped    []string
	Failed     []Failure
	Bytes      int64
}

// Download fetches every entry of m in order. A failed entry is logged and
// recorded in the report, and the run continues unless FailFast is set.
// The returned error is non-nil only if the run was stopped early.
func (d *Downloader) Download(ctx context.Context, m Manifest) (*Report, error) {
	if err := os.MkdirAll(d.Dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("order: creating download directory: %w", err)
	}
	log := d.logger()
	rep := new(Report)
	for _, e := range m {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		dest := filepath.Join(d.Dir, e.Name)
		fields := logrus.Fields{"file": e.Name, "url": e.URL}
		if _, err := os.Stat(dest); err == nil {
			rep.Skipped = append(rep.Skipped, dest)
			log.WithFields(fields).Debug("file exists; skipping")
			continue
		}
		start := time.Now()
		n, err := d.fetch(ctx, e, dest)
		if err != nil {
			rep.Failed = append(rep.Failed, Failure{Entry: e, Err: err})
			log.WithFields(fields).WithError(err).Error("download failed")
			if d.FailFast {
				return rep, fmt.Errorf("order: downloading %s: %w", e.Name, err)
			}
			continue
		}
		rep.Downloaded = append(rep.Downloaded, dest)
		rep.Bytes += n
		log.WithFields(fields).WithFields(logrus.Fields{
			"bytes":    humanize.Bytes(uint64(n)),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("downloaded")
	}
	log.WithFields(logrus.Fields{
		"downloaded": len(rep.Downloaded),
		"skipped":    len(rep.Skipped),
		"failed":     len(rep.Failed),
		"bytes":      humanize.Bytes(uint64(rep.Bytes)),
	}).Info("download finished")
	return rep, nil
}

func (d *Downloader) logger() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}

// fetch downloads e to dest through a temporary file in the same directory.
func (d *Downloader) fetch(ctx context.Context, e Entry, dest string) (int64, error) {
	tmp, err := ioutil.TempFile(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("order: creating temporary file: %w", err)
	}
	n, err := d.copy(ctx, tmp, e.URL)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dest)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return n, err
	}
	return n, nil
}

func (d *Downloader) copy(ctx context.Context, w io.Writer, loc string) (int64, error) {
	if cloud.IsBlob(loc) {
		return cloud.Download(ctx, w, loc)
	}
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		return 0, fmt.Errorf("order: unsupported URL scheme in %s", loc)
	}
	resp, err := d.get(ctx, loc)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("order: reading %s: %w", loc, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("order: %s: received %d of %d bytes", loc, n, resp.ContentLength)
	}
	return n, nil
}

// get performs an authenticated GET request and checks the response status.
func (d *Downloader) get(ctx context.Context, loc string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("order: %w", err)
	}
	req = req.WithContext(ctx)
	if d.Credentials.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Credentials.Token)
	}
	d.authorizeRedirect(req)
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order: requesting %s: %w", loc, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrHTTPStatus, loc, resp.Status)
	}
	return resp, nil
}

// ReadToken returns the first non-empty line of the token file at path.
func ReadToken(path string) (string, error) {
	b, err := ioutil.ReadFile(os.ExpandEnv(path))
	if err != nil {
		return "", fmt.Errorf("order: reading token file: %w", err)
	}
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l, nil
		}
	}
	return "", fmt.Errorf("order: token file %s is empty", path)
}
