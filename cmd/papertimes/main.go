package main

import (
	"papertimes/cmd/handlers"
	"papertimes/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
