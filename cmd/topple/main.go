package main

import "github.com/mcoot/topple/internal/cli"

func main() {
	cli.Execute()
}
