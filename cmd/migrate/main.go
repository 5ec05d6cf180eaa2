package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"shortshive/internal/db"
)

func main() {
	_ = godotenv.Load()

	var dirFlag string
	flag.StringVar(&dirFlag, "direction", "up", "up applies pending migrations, down rolls back one, version prints the current version")
	flag.Parse()

	direction := strings.TrimSpace(strings.ToLower(dirFlag))
	if arg := flag.Arg(0); arg != "" {
		direction = strings.ToLower(arg)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, dbURL)
	if err != nil {
		exitWithError(err)
	}
	defer conn.Close()

	switch direction {
	case "up":
		err = db.Up(conn)
	case "down":
		err = db.Down(conn)
	case "version":
	default:
		exitWithError(fmt.Errorf("unsupported direction %q", direction))
	}
	if err != nil {
		exitWithError(err)
	}

	version, dirty, err := db.CurrentVersion(ctx, conn)
	switch {
	case errors.Is(err, db.ErrNoVersion):
		fmt.Println("schema version: none")
	case err != nil:
		exitWithError(err)
	default:
		fmt.Printf("schema version: %d (dirty=%t)\n", version, dirty)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}
