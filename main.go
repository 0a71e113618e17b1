// SPDX-License-Identifier: MPL-2.0

package main

import cmd "mxcmd/cmd/mxcmd"

func main() {
	cmd.Execute()
}
