package importer

import "fmt"

// MissingSourceError reports that a mandatory profile file is absent.
type MissingSourceError struct {
	Path string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("missing source %s", e.Path)
}

// MalformedDataError reports a source file that could not be read or queried.
type MalformedDataError struct {
	Path string
	Err  error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data in %s: %v", e.Path, e.Err)
}

func (e *MalformedDataError) Unwrap() error {
	return e.Err
}
