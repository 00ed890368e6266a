package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/notary/internal/api"
	"github.com/JaimeStill/notary/internal/config"
	"github.com/JaimeStill/notary/pkg/openapi"
)

func main() {
	specOut := flag.String("openapi", "", "write the OpenAPI document to this file and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	if *specOut != "" {
		if err := openapi.WriteJSON(api.NewSpec(cfg), *specOut); err != nil {
			log.Fatal("write openapi failed: ", err)
		}
		return
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatal("server failed: ", err)
	}
}
