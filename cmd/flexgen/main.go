// Command flexgen generates a flexfield input workbook from local files.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
