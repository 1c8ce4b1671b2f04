package main

import "github.com/tornikegomareli/Sentinel/internal/cli"

func main() {
	cli.Execute()
}
