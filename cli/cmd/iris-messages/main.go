// iris-messages - replay and drive Messages API event streams.
package main

import (
	"errors"
	"os"

	"github.com/petal-labs/iris-messages/cli/commands"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		os.Exit(coded.ExitCode())
	}
	os.Exit(commands.ExitValidation)
}
