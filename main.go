package main

import "github.com/strrl/neuropipe/internal/cmd"

func main() {
	cmd.Execute()
}
