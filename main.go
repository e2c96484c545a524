package main

import "github.com/10amc-2/disorder/cmd"

func main() {
	cmd.Execute()
}
