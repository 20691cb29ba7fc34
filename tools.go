//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They keep the mockgen version used
// by the go:generate directives tracked in go.mod.
package groovon

import (
	_ "go.uber.org/mock/mockgen"
)
