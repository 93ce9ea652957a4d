package main

import "semstore/internal/cli"

func main() {
	cli.Execute()
}
