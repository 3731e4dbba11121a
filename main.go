package main

import "github.com/ropdawg/astral/cmd"

func main() {
	cmd.Execute()
}
