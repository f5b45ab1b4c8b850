package main

import (
	"log"

	approuters "github.com/dhairya9370/wispr-backend/internal/app_routers"
	"github.com/dhairya9370/wispr-backend/internal/configuration"
)

func main() {
	container, err := configuration.BuildContainer(configuration.ConfigPath())
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Blocks until shutdown; closes the container on the way out
	approuters.StartServer(container)
}
