package main

import "os"

func main() {
	cleanup()
	os.Exit(1) // want "do not call os.Exit directly in main.main"
}

func cleanup() {
	// os.Exit is fine outside main.main.
	defer os.Exit(0)
}
