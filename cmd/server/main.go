package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"aerialdetect/internal/app"
)

func main() {
	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		application.Close()
		os.Exit(0)
	}()

	if err := application.Run(); err != nil {
		application.Close()
		log.Fatalf("Failed to start server: %v", err)
	}
}
