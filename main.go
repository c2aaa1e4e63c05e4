package main

import "github.com/relayforge/relayforge/cmd"

func main() {
	cmd.Execute()
}
