package main

import "github.com/sergev/floppyimg/cmd"

func main() {
	cmd.Execute()
}
