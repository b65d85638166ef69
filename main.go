package main

import "versalex-ingest/internal/cli"

func main() {
	cli.Execute()
}
