package main

import (
	"os"

	"github.com/excflow/excflow/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
