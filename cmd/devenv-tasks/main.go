package main

import "github.com/gabyx/devenv/internal/cli"

func main() {
	cli.Execute()
}
