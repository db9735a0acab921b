package main

import (
	"fmt"
	"os"
)

func main() {
	err := newRootCommand(&app{}).Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
