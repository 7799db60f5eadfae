// ABOUTME: Process-wide record store created lazily on first access and reused afterwards.
// ABOUTME: Concurrent first accesses collapse into a single load that all callers share.

package store

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	instance  atomic.Pointer[Store]
	loadGroup singleflight.Group

	// loadFunc is replaced in tests to observe load attempts
	loadFunc = Load
)

// GetInstance returns the process-wide store, loading it from path on first use.
// An empty path means DefaultPath.
//
// Once a load succeeds the same store is returned for the rest of the process
// and any path passed later is ignored. A failed load leaves no store behind,
// so the next call tries again. Callers that arrive while a load is in flight
// wait for it and share its store or its error. A failed load is not shared
// with callers that reach the load after it has returned: they start a new
// attempt, even if they checked for a store while the failing one was running.
func GetInstance(path string, logger *logrus.Logger) (*Store, error) {
	if s := instance.Load(); s != nil {
		return s, nil
	}

	if path == "" {
		path = DefaultPath
	}

	v, err, _ := loadGroup.Do("instance", func() (interface{}, error) {
		if s := instance.Load(); s != nil {
			return s, nil
		}

		s, err := loadFunc(path, logger)
		if err != nil {
			return nil, err
		}
		instance.Store(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Store), nil
}

// Current returns the process-wide store if one has been loaded, without loading it
func Current() *Store {
	return instance.Load()
}
