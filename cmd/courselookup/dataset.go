package main

import (
	"github.com/oarkflow/courselookup"
	"github.com/oarkflow/courselookup/dataset"
)

func openDataset(logger *courselookup.Logger) (courselookup.Loader, error) {
	return dataset.Open(appCfg.Dataset.Source, appCfg.Sources(logger))
}
