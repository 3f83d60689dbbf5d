// Command bigramdict inspects, imports and serves bigram dictionaries.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hupe1980/bigramdict/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
