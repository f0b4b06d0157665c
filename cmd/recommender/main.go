// Package main is the entry point for the recommender CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/commands"
)

func main() {
	rootCmd := commands.NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
