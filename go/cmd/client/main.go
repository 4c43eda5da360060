package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/client"
	"github.com/duopick/duopick/go/internal/feed"
	"github.com/duopick/duopick/go/internal/items"
	"github.com/duopick/duopick/go/internal/models"
	"github.com/duopick/duopick/go/internal/reconcile"
	"github.com/duopick/duopick/go/internal/selector"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	userIDStr := flag.String("user", "", "user id (uuid); generated when empty")
	joinCode := flag.String("join", "", "invite code to join a room with")
	create := flag.Bool("create", false, "create a room when not yet paired")
	natsURL := flag.String("nats", "", "subscribe via NATS instead of WebSocket")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	userID := uuid.New()
	if *userIDStr != "" {
		parsed, err := uuid.Parse(*userIDStr)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid --user")
		}
		userID = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := client.NewStore(*serverURL, userID)
	room, err := resolveRoom(ctx, store, *joinCode, *create)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve room")
	}
	fmt.Printf("room %s (invite code %s), you are %s\n", room.ID, room.InviteCode, userID)

	rec := reconcile.New(room.ID, store)
	defer rec.Close()

	// Attach the feed first, then load the snapshot: an event that lands in
	// between is merged idempotently, an event missed before the attach is
	// covered by the snapshot.
	detach, err := attachFeed(ctx, *serverURL, *natsURL, userID, room.ID, rec.HandleEvent)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to attach feed")
	}
	defer detach()

	if err := rec.LoadSnapshot(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load snapshot")
	}

	runPrompt(ctx, rec)
}

func resolveRoom(ctx context.Context, store *client.Store, joinCode string, create bool) (*client.Room, error) {
	room, err := store.MyRoom(ctx)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, client.ErrNotPaired) {
		return nil, err
	}
	if joinCode != "" {
		return store.JoinRoom(ctx, joinCode)
	}
	if create {
		return store.CreateRoom(ctx)
	}
	return nil, errors.New("not paired: pass --create or --join CODE")
}

func attachFeed(ctx context.Context, serverURL, natsURL string, userID, roomID uuid.UUID, handler feed.Handler) (func(), error) {
	if natsURL != "" {
		nc, err := feed.Connect(natsURL)
		if err != nil {
			return nil, err
		}
		sub, err := feed.NewSubscriber(nc).Subscribe(roomID, handler)
		if err != nil {
			nc.Close()
			return nil, err
		}
		return func() {
			sub.Close()
			nc.Close()
		}, nil
	}

	fc, err := client.AttachFeed(ctx, serverURL, userID, roomID, handler)
	if err != nil {
		return nil, err
	}
	return func() { fc.Close() }, nil
}

func runPrompt(ctx context.Context, rec *reconcile.Reconciler) {
	reveal := selector.NewReveal(selector.New(), clockwork.NewRealClock(),
		func(decoy models.Item) { fmt.Printf("\r  ... %-40s", decoy.Name) },
		func(pick models.Item) { fmt.Printf("\r>>> %s\n", pick.Name) },
	)
	defer reveal.Close()

	fmt.Println("commands: list | add NAME [@ LOCATION] | rm N | pick | retry | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")

		var err error
		switch cmd {
		case "":
		case "quit", "exit":
			return
		case "list":
			printList(rec.Items())
		case "add":
			err = addItem(ctx, rec, rest)
		case "rm":
			err = removeItem(ctx, rec, rest)
		case "pick":
			err = reveal.Start(rec.Items())
		case "retry":
			err = reveal.Retry(rec.Items())
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}

func printList(list []models.Item) {
	if len(list) == 0 {
		fmt.Println("(empty)")
		return
	}
	for i, item := range list {
		line := fmt.Sprintf("%2d. %s", i+1, item.Name)
		if item.Location != nil {
			line += " @ " + *item.Location
		}
		if item.WishedBy != nil {
			line += " [" + string(*item.WishedBy) + "]"
		}
		fmt.Println(line)
	}
}

func addItem(ctx context.Context, rec *reconcile.Reconciler, rest string) error {
	name, location, hasLoc := strings.Cut(rest, "@")
	req := items.CreateItemRequest{Name: strings.TrimSpace(name)}
	if hasLoc {
		loc := strings.TrimSpace(location)
		req.Location = &loc
	}
	return rec.MutateAdd(ctx, req)
}

func removeItem(ctx context.Context, rec *reconcile.Reconciler, rest string) error {
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return fmt.Errorf("rm wants a list position: %w", err)
	}
	list := rec.Items()
	if n < 1 || n > len(list) {
		return fmt.Errorf("no item at position %d", n)
	}
	return rec.MutateRemove(ctx, list[n-1].ID)
}
