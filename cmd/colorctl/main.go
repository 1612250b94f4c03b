package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

func main() {
	cli := CLI{out: os.Stdout}
	ctx := kong.Parse(&cli,
		kong.Name("colorctl"),
		kong.Description("Inspect the movement color classifier from the command line."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
