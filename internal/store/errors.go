// ABOUTME: Error types returned when the vulnerability table cannot be built.
// ABOUTME: Distinguishes a missing source file from a source that cannot be parsed.

package store

import "fmt"

// DataSourceNotFoundError is returned when the source path does not resolve to a readable file
type DataSourceNotFoundError struct {
	Path string
	Err  error
}

func (e *DataSourceNotFoundError) Error() string {
	return fmt.Sprintf("vulnerability data file %q not found; the server cannot operate without it", e.Path)
}

func (e *DataSourceNotFoundError) Unwrap() error {
	return e.Err
}

// DataLoadError is returned when the source exists but cannot be parsed into records
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load vulnerability data from %q: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
