package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	buildgate "github.com/m-mizutani/buildgate/pkg/cli"
)

func main() {
	if err := buildgate.Run(context.Background(), os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}
