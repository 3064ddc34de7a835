// Package util provides small helpers shared across the bridge packages.
//
// Key utilities:
//   - SafeTruncate: Truncates provider responses before they are logged or returned as diagnostics
package util
