package main

import "github.com/relic-io/relic/cmd/relic/commands"

func main() {
	commands.Execute()
}
