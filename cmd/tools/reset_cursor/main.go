package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"erc20scan/internal/repository"
)

// Deletes all transfers above a given block height. The ingester derives its
// cursor from MAX(block_number), so this forces a rescan from height+1 on the
// next start. Rescans are idempotent.
func main() {
	height := flag.Int64("above", -1, "delete rows with block_number above this height")
	flag.Parse()

	if *height < 0 {
		log.Fatal("usage: reset_cursor -above <height>")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	repo, err := repository.NewRepository(dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer repo.Close()

	deleted, err := repo.DeleteAbove(context.Background(), *height)
	if err != nil {
		log.Fatalf("Failed to delete rows: %v", err)
	}

	if deleted == 0 {
		fmt.Printf("No rows above block %d. Nothing to rewind.\n", *height)
	} else {
		fmt.Printf("Deleted %d row(s) above block %d. The ingester will rescan from %d on next run.\n", deleted, *height, *height+1)
	}
}
