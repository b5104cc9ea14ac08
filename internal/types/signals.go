package types

import "time"

// SourceName identifies one external signal source.
type SourceName string

// Supported signal sources.
const (
	SourceMapListing SourceName = "map_listing"
	SourceWebsite    SourceName = "website"
	SourceFacebook   SourceName = "facebook"
	SourceInstagram  SourceName = "instagram"
)

// AllSources lists every source in a stable order.
var AllSources = []SourceName{SourceMapListing, SourceWebsite, SourceFacebook, SourceInstagram}

// SourceRecord is the partial data returned by one successful fetch.
// An empty Data map is a successful fetch that found nothing.
type SourceRecord struct {
	Source    SourceName     `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
	Data      map[string]any `json:"data"`
}

// RawSignalSet maps source names to fetched records. A missing key means the
// source was not attempted or failed.
type RawSignalSet struct {
	Sources   map[SourceName]*SourceRecord `json:"sources"`
	Attempted []SourceName                 `json:"attempted,omitempty"`
	Failures  map[SourceName]string        `json:"failures,omitempty"`
}

// NewRawSignalSet returns an empty set.
func NewRawSignalSet() *RawSignalSet {
	return &RawSignalSet{Sources: map[SourceName]*SourceRecord{}}
}

// Get returns the record for name and whether it is present.
func (s *RawSignalSet) Get(name SourceName) (*SourceRecord, bool) {
	if s == nil || s.Sources == nil {
		return nil, false
	}
	rec, ok := s.Sources[name]
	return rec, ok
}

// Present returns the names of present sources in AllSources order.
func (s *RawSignalSet) Present() []SourceName {
	var names []SourceName
	for _, name := range AllSources {
		if _, ok := s.Get(name); ok {
			names = append(names, name)
		}
	}
	return names
}

// Len returns the number of present sources.
func (s *RawSignalSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Sources)
}
