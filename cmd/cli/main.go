package main

import (
	"fmt"
	"os"

	"github.com/de-tools/service-map/pkg/runtime/terminal"
	"github.com/de-tools/service-map/pkg/store/registry"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional for the CLI
	_ = godotenv.Load()

	cli := terminal.NewCLI(terminal.Options{
		Registry: registry.Default(),
		Output:   os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
