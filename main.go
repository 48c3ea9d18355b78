// SPDX-License-Identifier: MPL-2.0

// wheelmeta extracts the METADATA entry from Python wheel archives,
// local or remote, without downloading whole archives.
package main

import cmd "wheelmeta/cmd/wheelmeta"

func main() {
	cmd.Execute()
}
