// Package application is the composition root. It resolves secrets, drives
// the bootstrap loader, and owns the resulting handles together with the
// HTTP router and server, keeping the main package focused on CLI parsing
// and orchestration.
package application
