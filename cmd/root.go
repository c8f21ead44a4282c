package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hivecache/hivecache/cmd/perf"
	"github.com/hivecache/hivecache/cmd/serve"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "hivecache",
		Short: "distributed in-process cache",
		Long: fmt.Sprintf(`hivecache (v%s)

A distributed cache written in Go: S3-FIFO eviction on every node,
last-writer-wins replication between them, no consensus protocol.
Every node answers reads from its local copy, even when the rest of
the cluster is unreachable.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hivecache",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hivecache v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
