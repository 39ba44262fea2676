package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Local secret material (POW_SECRET and friends) may live in a .env
	// file; absence is fine.
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
