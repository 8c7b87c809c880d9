package main

import (
	"etf-tracker/internal/cli"
)

func main() {
	cli.Execute()
}
