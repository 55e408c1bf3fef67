package main

import "github.com/mcoot/shadowtag/internal/cli"

func main() {
	cli.Execute()
}
