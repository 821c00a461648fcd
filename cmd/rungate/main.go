package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/rungate/internal/accept"
	"github.com/ppiankov/rungate/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var gateErr *accept.GateError
		switch {
		case errors.As(err, &gateErr):
			os.Exit(3)
		case errors.Is(err, accept.ErrNoNewRunID):
			os.Exit(2)
		}
		os.Exit(1)
	}
}
