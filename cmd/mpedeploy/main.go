// Package main provides the mpedeploy CLI for provisioning the MPE crowdsale.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
