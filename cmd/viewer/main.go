// Command viewer prints the content of a message store as a table.
// It opens the database read-only, so it can run next to a live server
// only when that server is stopped; point it at a copy otherwise.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"pairchat/repositories"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("db", "", "path to the badger database")
	channel := flag.String("channel", "", "restrict to one channel (raw name)")
	limit := flag.Int("limit", 1000, "maximum rows to print")
	flag.Parse()
	if *path == "" {
		return fmt.Errorf("missing -db flag")
	}

	db, err := badger.Open(badger.DefaultOptions(*path).WithReadOnly(true).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("open badger at %s: %w", *path, err)
	}
	defer func() { _ = db.Close() }()

	prefix := "msg:"
	if *channel != "" {
		prefix += *channel + ":"
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Channel", "Sender", "Recipient", "Text", "At"})
	table.SetAutoWrapText(false)

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && count < *limit; it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			msg, err := repositories.DecodeMessage(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", it.Item().Key(), err)
				continue
			}
			table.Append([]string{
				fmt.Sprintf("%d", msg.ID),
				strings.ReplaceAll(string(msg.Channel), "\x1f", " | "),
				msg.Sender,
				msg.Recipient,
				msg.Text,
				msg.CreatedAt.Format(time.RFC3339),
			})
			count++
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	fmt.Printf("%d messages\n", count)
	return nil
}
