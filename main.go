// Main entry point for the application
package main

import (
	"fmt"
	"os"

	"photoframe/internal/config"
	"photoframe/internal/frame"
)

func main() {
	cfg := config.Default()
	if err := frame.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
