// Package main is the entry point for the dp CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"go.dynplug.dev/dp/cmd/dp/commands"
	"go.dynplug.dev/dp/internal/adapters/cas"
	"go.dynplug.dev/dp/internal/adapters/config"
	"go.dynplug.dev/dp/internal/adapters/fs"
	"go.dynplug.dev/dp/internal/adapters/logger"
	"go.dynplug.dev/dp/internal/adapters/modulefederation"
	"go.dynplug.dev/dp/internal/adapters/nodeloader"
	"go.dynplug.dev/dp/internal/adapters/npmregistry"
	"go.dynplug.dev/dp/internal/adapters/scalprum"
	"go.dynplug.dev/dp/internal/adapters/shell"
	"go.dynplug.dev/dp/internal/app"
	"go.dynplug.dev/dp/internal/export"
)

func main() {
	if err := run(); err != nil {
		// zerr prints a pretty error report with stack trace and metadata when using %+v
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	log := logger.New()
	configLoader := config.NewLoader()
	runner := shell.NewRunner(log)

	registryCacheDir, err := os.UserCacheDir()
	if err != nil {
		registryCacheDir = os.TempDir()
	}
	registry := npmregistry.NewClient(npmregistry.DefaultURL, registryCacheDir)
	resolver := fs.NewCompositeResolver(fs.NewResolver(), registry)

	cacheStore, err := cas.NewStore("dp-pack-cache.json")
	if err != nil {
		return err
	}
	hasher := fs.NewHasher(fs.NewWalker())

	application := app.New(configLoader, export.Deps{
		Resolver:         resolver,
		Runner:           runner,
		Loader:           nodeloader.NewLoader(""),
		Logger:           log,
		Cache:            export.NewCache(hasher, cacheStore),
		Verifier:         fs.NewVerifier(),
		Scalprum:         scalprum.NewProducer(nil),
		ModuleFederation: modulefederation.NewProducer(nil),
	})

	cli := commands.New(application, runner)
	return cli.Execute(ctx)
}
