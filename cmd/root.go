package main

import (
	"github.com/spf13/cobra"

	"github.com/mynextid/zk-passport/cmd/zkpassport"
)

// Init the cmd
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zkpassport",
		Short: "Passport zero-knowledge witness toolkit",
		Long:  `Tools and an API for turning ICAO passport data into zero-knowledge circuit inputs`,
	}

	rootCmd.AddCommand(
		zkpassport.NewServeCmd(),
		zkpassport.NewInspectCmd(),
		zkpassport.NewInputsCmd(),
		zkpassport.NewWatchlistCmd(),
		NewVersionCmd(),
	)

	return rootCmd
}
