package main

import "github.com/lepinkainen/bookcase/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
