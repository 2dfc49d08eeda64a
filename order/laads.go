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
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// LAADSOrders is the location of LAADS DAAC archive orders.
const LAADSOrders = "https://ladsweb.modaps.eosdis.nasa.gov/archive/orders/"

// rejectSuffixes are listing entries that are not order files.
var rejectSuffixes = []string{".html", ".htm", ".tmp"}

// LAADSManifest lists the files of a LAADS DAAC order by reading the HTML
// index of <base>/<orderID>/. Links that leave the order directory, carry
// a query, point to subdirectories, or name .html or .tmp files are
// ignored. The manifest is sorted by file name.
func (d *Downloader) LAADSManifest(ctx context.Context, base, orderID string) (Manifest, error) {
	if base == "" {
		base = LAADSOrders
	}
	dir, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.Trim(orderID, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("order: invalid order location: %w", err)
	}
	resp, err := d.get(ctx, dir.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("order: parsing order listing %s: %w", dir, err)
	}

	seen := make(map[string]bool)
	var m Manifest
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				if e, ok := listingEntry(dir, a.Val); ok && !seen[e.Name] {
					seen[e.Name] = true
					m = append(m, e)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	sort.Slice(m, func(i, j int) bool { return m[i].Name < m[j].Name })
	return m, nil
}

// listingEntry returns the entry for link href in the listing of dir.
func listingEntry(dir *url.URL, href string) (Entry, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || ref.RawQuery != "" || ref.Fragment != "" && ref.Path == "" {
		return Entry{}, false
	}
	u := dir.ResolveReference(ref)
	u.Fragment = ""
	if u.Host != dir.Host || !strings.HasPrefix(u.Path, dir.Path) || strings.HasSuffix(u.Path, "/") {
		return Entry{}, false
	}
	name := path.Base(u.Path)
	if strings.Contains(strings.TrimPrefix(u.Path, dir.Path), "/") {
		return Entry{}, false
	}
	for _, s := range rejectSuffixes {
		if strings.HasSuffix(strings.ToLower(name), s) {
			return Entry{}, false
		}
	}
	return Entry{URL: u.String(), Name: name}, true
}
