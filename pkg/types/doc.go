// Package types defines the configuration, record type, and standard error
// values shared by every larder package.
//
// Errors are sentinel values; callers wrap them with fmt.Errorf("...: %w")
// and test them with errors.Is.
package types
