package main

import "github.com/almikh/pmvgen/internal/cli"

func main() {
	cli.Main()
}
