package engine

import "fmt"

// UnsupportedFormatError reports a file whose extension maps to no strategy.
// It is a skip, never fatal to the batch.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q for %s", e.Ext, e.Path)
}

// ParseError reports a source file its assigned strategy could not open or
// walk. Per-file fatal, the batch continues.
type ParseError struct {
	Format Format
	Path   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s container %s: %v", e.Format, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ToolUnavailableError reports a missing external capability. Remediation
// tells the user how to make it available.
type ToolUnavailableError struct {
	Tool        string
	Remediation string
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("external tool %q is not available: %s", e.Tool, e.Remediation)
}

// ConflictError reports a destination path collision the counter-suffix
// policy could not resolve.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("destination %s conflicts with existing entries beyond the suffix limit", e.Path)
}

// PartialError reports that some pages could not be recovered. Every
// recoverable page has already been yielded when this is returned; Recovered
// and Missing describe the split. Strict runs treat it as a failure, lenient
// runs keep the subset and flag the book as partial.
type PartialError struct {
	Recovered int
	Missing   int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("recovered %d page(s), %d missing: %v", e.Recovered, e.Missing, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}
