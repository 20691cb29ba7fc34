package main

import (
	"flag"
	"fmt"
	"groovon/domain/chat"
	"groovon/repositories"
	"groovon/runtime"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	group := flag.String("group", "", "Only this group (all groups when empty)")
	limit := flag.Int("limit", chat.DefaultMessageLimit, "Most recent messages per group, 0 for all")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	logger := logs.GetLoggerFromLevel(slog.LevelWarn)
	registry := runtime.NewRegistry(logger)
	messages := repositories.NewMessageRepository(db, logger, registry)
	users := repositories.NewUserRepository(db, registry)

	groups := chat.Groups()
	if *group != "" {
		g, ok := chat.LookupGroup(chat.GroupID(*group))
		if !ok {
			log.Fatalf("Unknown group %q", *group)
		}
		groups = []chat.Group{g}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Group", "Server time", "Day", "Author", "ID", "Text"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	names := make(map[string]string)
	for _, g := range groups {
		fetched, err := messages.GetMessages(g.ID, *limit)
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range fetched {
			if _, ok := names[m.AuthorID]; !ok {
				profile, _, err := users.GetProfile(m.AuthorID)
				if err != nil {
					log.Fatal(err)
				}
				names[m.AuthorID] = profile.WithDefaults().DisplayName
			}

			// The first 8 characters of the id are enough to tell messages apart
			displayID := m.ID
			if len(displayID) > 8 {
				displayID = displayID[:8]
			}

			table.Append([]string{
				string(g.ID),
				m.ServerTime.Format("2006-01-02 15:04:05"),
				chat.ResolveDay(m, nil).Label,
				names[m.AuthorID],
				displayID,
				strings.ReplaceAll(m.Text, "\n", "⏎"),
			})
		}
	}
	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("no database path, use -db or BADGER_FILEPATH")
	}
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
