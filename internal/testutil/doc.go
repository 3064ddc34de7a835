// Package testutil provides testing utilities for the bridge: EC signing keys in
// the formats Apple issues, unsigned identity tokens, a scriptable stand-in for
// Apple's token and revocation endpoints, and small assertion helpers.
package testutil
