// Package backend models the cloud application backend the process registers
// with: the configuration record that addresses one backend project and the
// application handle created from it. Identifier formats are checked here the
// way the hosted SDK checks them, so a malformed record is rejected at
// creation time instead of on the first remote call.
package backend
