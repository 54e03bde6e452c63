package main

import (
	"os"
	"rasgo-sdk/pkg/rasgo"
)

func main() {
	root := newApp(rasgo.FromEnvironment, os.Stdin).command()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
