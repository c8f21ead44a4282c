// Package cmd implements the command-line interface for the hivecache
// distributed cache. It provides a hierarchical command structure for running
// and benchmarking a cache node.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring a cache node
//   - perf: Benchmarking tool for the local cache engine
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See hivecache -help for a list of all commands.
package cmd
