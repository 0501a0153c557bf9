//go:build lobdebug

package core

const strictInvariants = true
