//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binLint = "golangci-lint"

// lintPaths are the shelf packages under lint; magefiles are build tooling.
var lintPaths = []string{"./cmd/...", "./internal/...", "./pkg/..."}

// Lint runs go vet, then golangci-lint over the shelf packages.
func Lint() error {
	mg.Deps(Vet)
	args := append([]string{"run", "--timeout", "5m"}, lintPaths...)
	return sh.RunV(binLint, args...)
}

// Vet runs go vet over the shelf packages.
func Vet() error {
	args := append([]string{"vet"}, lintPaths...)
	return sh.RunV(binGo, args...)
}
