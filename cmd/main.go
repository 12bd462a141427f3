package main

import (
	"os"

	"github.com/soundprediction/go-textrdf/cmd/textrdf"
)

func main() {
	if err := textrdf.Execute(); err != nil {
		os.Exit(1)
	}
}
