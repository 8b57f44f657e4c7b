package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}
