// Command fsagent runs a language-model file agent confined to a safe root.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/petasbytes/fsagent/internal/cli"
)

func main() {
	app := cli.New()

	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
