// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI surface for wheelmeta.
//
// This package implements the Cobra command tree: the root command
// takes wheel locators as positional arguments, fetches their METADATA
// entries concurrently, and streams the results to stdout as one JSON
// object in completion order.
package cmd
