package main

import "github.com/injectionflow/platedist/cmd"

func main() {
	cmd.Execute()
}
