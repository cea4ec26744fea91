// Command settlectl manages profit-sharing rules and simulates settlements.
package main

import (
	"fmt"
	"os"

	"github.com/bitfsorg/settle-go/cli"
)

func main() {
	if err := cli.Execute(cli.NewRootCommand()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
