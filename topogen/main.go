// Package main provides topogen, a command that assembles a cache coherence
// topology from a config file.
package main

import "github.com/sarchlab/mesitopo/topogen/cmd"

func main() {
	cmd.Execute()
}
