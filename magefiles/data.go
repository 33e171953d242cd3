//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	datasetPath = "data/regions.csv"
	seedDataset = "internal/destination/testdata/regions.csv"
)

// Data groups targets that prepare the local destination data.
type Data mg.Namespace

// Seed copies the bundled sample dataset to data/regions.csv when no dataset exists.
func (Data) Seed() error {
	mg.Deps(Init)
	if _, err := os.Stat(datasetPath); err == nil {
		fmt.Printf("%s already exists, leaving it alone\n", datasetPath)
		return nil
	}
	if err := sh.Copy(datasetPath, seedDataset); err != nil {
		return fmt.Errorf("copying %s: %w", seedDataset, err)
	}
	fmt.Printf("Seeded %s from %s\n", datasetPath, seedDataset)
	return nil
}

// Load replaces the destination table with the dataset.
func (Data) Load() error {
	mg.Deps(Build, Data.Seed)
	return sh.RunV(binPath(), "destinations", "load", "--mode", "replace", datasetPath)
}

// Index rebuilds the similarity index from the dataset.
func (Data) Index() error {
	mg.Deps(Build, Data.Seed)
	return sh.RunV(binPath(), "index", "build", datasetPath)
}

// All loads the table and builds the index.
func (Data) All() {
	mg.SerialDeps(Data.Load, Data.Index)
}

// Serve prepares the data and starts the HTTP server.
func Serve() error {
	mg.Deps(Data.All)
	return sh.RunV(binPath(), "serve")
}
