// Package errors provides the classified error primitives used across mirage.
//
// Every failure the build pipeline reports falls into one of four classes, and
// the class decides what the caller does next:
//
//   - fatal configuration (CategoryConfig, SeverityFatal): abort the compile
//     before anything is published, e.g. a required template is missing;
//   - per-item skip (SeverityWarning): log and continue with the next file;
//   - I/O fatal (CategoryFileSystem, SeverityFatal): abort the remaining steps
//     of the current compile;
//   - transient (RetryImmediate): a failed rebuild inside watch mode; the loop
//     reports it and waits for the next change.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryFileSystem, "write page failed").
//		Fatal().
//		WithContext("path", out).
//		WithCause(writeErr).
//		Build()
package errors
