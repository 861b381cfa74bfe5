// Package main is the entry point of the lamportsim command.
package main

import "github.com/sarchlab/lamportsim/lamportsim/cmd"

func main() {
	cmd.Execute()
}
