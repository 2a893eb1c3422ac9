package main

import (
	"flag"
	"log"

	"opendvp/qupath2lmd/internal/app"
)

func main() {
	cfgPath := flag.String("config", "", "path to config.json (default ./config.json)")
	flag.Parse()
	if err := app.Run(*cfgPath); err != nil {
		log.Fatalf("qupath2lmd: %v", err)
	}
}
