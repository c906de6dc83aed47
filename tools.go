//go:build tools

// Package tools declares tool dependencies for this module. The imports keep
// go.mod tracking the generators invoked through `go generate`.
package tools

import (
	_ "github.com/google/wire/cmd/wire"
	_ "go.uber.org/mock/mockgen"
)
