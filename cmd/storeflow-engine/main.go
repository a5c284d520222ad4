package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/storeflow/storeflow/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "storeflow-engine",
		Usage:                 "Run the workflow automation engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("engine").Error("Engine terminated", "error", err)
		os.Exit(1)
	}
}
