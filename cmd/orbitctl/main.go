package main

import (
	"github.com/availops/orbitd/pkg/cli/cmd"
)

func main() {
	cmd.Execute()
}
