package main

import (
	"os"

	"github.com/brendankhow/IS469-G2-Group4/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
