// Package main is the entry point for the scholar-x retrieval service.
package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/scholar-x/cmd/scholar/app"
)

func main() {
	if err := app.NewScholarCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
