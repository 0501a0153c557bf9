//go:build !lobdebug

package core

// strictInvariants makes invariant violations panic. Release builds log and
// re-synchronize instead; build with -tags lobdebug to fail fast.
const strictInvariants = false
