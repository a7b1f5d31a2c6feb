// Package main implements the entry point for the briefly enrichment
// server: it turns crawled news articles into summaries, term cards,
// insights, and quizzes through a durable background job pipeline, and
// serves the read and admin APIs over HTTP.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
