// Command assistantctl is the operator CLI for the NovaTech assistant: it
// validates and syncs the knowledge base, refreshes dynamic data, asks
// one-off questions in-process and inspects a running server's sessions.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
