package main

import "github.com/capsim/capsim/cmd"

func main() {
	cmd.Execute()
}
