package main

import (
	"log"

	"github.com/ashmarin/shortlinker/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("initializing application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("running application: %v", err)
	}
}
