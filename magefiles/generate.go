//go:build mage

package main

import "github.com/magefile/mage/sh"

const binMockgen = "mockgen"

// Generate regenerates the gomock mocks for the storage interfaces.
func Generate() error {
	return sh.RunV(binMockgen,
		"-destination=pkg/types/mocks/mock_store.go",
		"-package=mocks",
		"-source=pkg/types/store.go",
	)
}
