package main

import (
	"fmt"
	"os"

	"github.com/copydesk/copydesk/internal/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present so local runs pick up API keys and DSNs.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
