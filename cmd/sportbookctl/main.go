package main

import (
	"github.com/joho/godotenv"

	"sportbook/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
