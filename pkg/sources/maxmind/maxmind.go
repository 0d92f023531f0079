// Package maxmind enriches inventory views with client-side geography from
// a GeoLite2-City database. Enrichment is optional and display-only.
package maxmind

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"
)

// Reader wraps a GeoLite2-City database reader
type Reader struct {
	city *geoip2.Reader
}

// Open opens the City database at cityPath
func Open(cityPath string) (*Reader, error) {
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open City database: %w", err)
	}
	return &Reader{city: city}, nil
}

// Close closes the database reader
func (r *Reader) Close() error {
	if r.city != nil {
		return r.city.Close()
	}
	return nil
}

// Locate returns the ISO country code and city name for an IP. Lookup
// failures return empty strings; display enrichment never fails a request.
func (r *Reader) Locate(ip string) (country, city string) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", ""
	}

	rec, err := r.city.City(net.IP(addr.AsSlice()))
	if err != nil || rec == nil {
		return "", ""
	}

	return rec.Country.IsoCode, rec.City.Names["en"]
}
