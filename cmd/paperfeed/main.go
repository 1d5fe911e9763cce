package main

import (
	"paperfeed/cmd/handlers"
	"paperfeed/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
