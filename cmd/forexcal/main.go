package main

import (
	"forexcal/internal/cli"
)

func main() {
	cli.Execute()
}
