package main

import (
	"log"

	"github.com/pocketsnooze/snoozerd/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ snoozerd failed to start: %v", err)
	}
}
