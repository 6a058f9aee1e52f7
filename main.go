package main

import (
	"context"
	"fmt"
	"os"

	"github.com/USA-RedDragon/configulator"

	"github.com/tetrahub/tetralog/cmd"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/sdk"
)

func main() {
	os.Exit(run())
}

func run() int {
	c := configulator.New[config.Config]()
	root := cmd.NewCommand(sdk.Version, sdk.GitCommit)

	ctx := c.WithContext(context.Background())
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
