// Package bootstrap turns a backend configuration record into the two handles
// the rest of the process uses: the application handle and the telemetry
// handle scoped to it. The record is validated before the SDK is touched, and
// the Loader allows exactly one transition from uninitialized to initialized.
package bootstrap
