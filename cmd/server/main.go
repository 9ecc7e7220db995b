// Package main is the entry point for the character builder server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "rpg-builder"

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "RPG character builder server",
	Long:  `rpg-builder serves step-by-step character drafts over HTTP and reports health over gRPC.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
