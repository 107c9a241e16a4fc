package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stock-scanner",
	Short: "A CLI for managing the Golang Stock Scanner services",
	Long:  `Golang Stock Scanner is a strategy scanning and aggregation engine built around Redis streams and Postgres.`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
