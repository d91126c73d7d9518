package timewindow

import (
	"strings"
	"sync"
	"time"
)

var locations sync.Map // name -> *time.Location

// Location resolves an IANA zone name, caching successful lookups.
// An empty name resolves to fallback.
func Location(name string, fallback *time.Location) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	if v, ok := locations.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	locations.Store(name, loc)
	return loc, nil
}
