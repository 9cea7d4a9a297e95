// Package worker runs the long-lived goroutines of the charge point under
// supervision. A panicking worker is restarted with exponential backoff; a
// worker that keeps failing shuts the whole process down through the
// group's context.
package worker
