// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/Tander/vs-updater/cmd/vsupdater"

func main() {
	cmd.Execute()
}
