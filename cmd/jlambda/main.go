package main

import "github.com/daimatz/jlambda/cmd/jlambda/commands"

func main() {
	commands.Execute()
}
