package main

import (
	"fmt"
	"os"

	"github.com/wch1125/proviso/internal/clicmd"
)

func main() {
	root := clicmd.Root()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
