package main

import (
	"bufio"
	"context"
	"fmt"
	"groovon/auth"
	"groovon/internal"
	"groovon/moderation"
	"groovon/repositories"
	"groovon/runtime"
	"groovon/runtime/workers"
	"groovon/services"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and drives the terminal session.
// Returning instead of exiting lets the deferred closes run.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	loc, err := config.Location()
	if err != nil {
		return err
	}
	censoredChar, err := internal.CharacterRune(config.ModerationCharReplacement)
	if err != nil {
		return err
	}

	// 2. Databases: the shared document store and the device-local storage
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	localDB, err := badger.Open(badger.DefaultOptions(config.LocalStoreFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("local store opening failed: %w", err)
	}
	defer func() { _ = localDB.Close() }()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Event loop under supervision
	loop := runtime.NewLoop(log, config.LoopBufferSize)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(loop, workers.NewBacklogWorker(log, config.BacklogInterval, config.BacklogThreshold,
		workers.NamedQueue{Name: "event-loop", Queue: loop}))
	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		sup.Run(ctx)
	}()

	// 5. Stores, identity and chat components
	registry := runtime.NewRegistry(log)
	messages := repositories.NewMessageRepository(db, log, registry)
	users := repositories.NewUserRepository(db, registry)
	local := repositories.NewLocalStore(localDB)

	moderator, err := moderation.LoadModerator(log, censoredChar, moderation.Dictionary{
		Add:    internal.SplitWords(config.ModerationAddWords),
		Remove: internal.SplitWords(config.ModerationRemoveWords),
	})
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	provider := auth.NewLocalProvider(log, users, local,
		auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration), auth.DefaultParams)
	groups := services.NewGroupService(log, local)
	session := services.NewSessionService(log, provider, users,
		services.NewFeedService(log, messages, loop, config.LimitMessages, loc),
		services.NewComposerService(log, messages, provider, groups, moderator, local, loc),
		groups,
		services.NewProfileService(log, users, loop),
		loc)

	term := newTerminal(os.Stdout, session, provider, loc)
	renders := session.OnRender(term.render)
	changes := groups.OnChange(term.groupChanged)
	session.Start(ctx)
	if _, ok, err := provider.Restore(ctx); err != nil {
		log.Warn("Session restore failed", "error", err)
	} else if !ok {
		term.welcome()
	}
	term.showDraft(session.Composer().Text())

	// 6. Read the keyboard until /quit, EOF or a signal
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

input:
	for {
		select {
		case <-ctx.Done():
			break input
		case line, ok := <-lines:
			if !ok || term.handle(ctx, line) {
				break input
			}
		}
	}

	// 7. Final Cleanup
	renders.Unsubscribe()
	changes.Unsubscribe()
	session.Stop()
	sup.Stop()
	<-supervised
	log.Info("Program stopped cleanly")
	return nil
}
