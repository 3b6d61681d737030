// Command badger_inspect dumps the chat document store for debugging.
// It scans a key prefix (msg:, user:, chat:) and renders the decoded
// documents as a table.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"chat-hive/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "/tmp/chat-hive/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, user:, chat:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "ID", "Detail", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Secondary index entries hold ids, not documents
			if strings.HasPrefix(key, "chatmsg:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				id, detail, created := describe(key, v)
				table.Append([]string{key, shorten(id), detail, created})
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	if rows == 0 {
		color.Yellow.Printf("No entries under prefix %q\n", *prefix)
		return
	}
	color.Green.Printf("%d entries under prefix %q\n\n", rows, *prefix)
	table.Render()
}

func describe(key string, value []byte) (id, detail, created string) {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var m domain.Message
		if err := json.Unmarshal(value, &m); err != nil {
			return "", fmt.Sprintf("undecodable: %v", err), ""
		}
		detail = m.Content
		if m.Poll != nil {
			detail = "[poll] " + m.Poll.Question
		}
		if len(m.Attachments) > 0 {
			detail = fmt.Sprintf("[%d attachments] %s", len(m.Attachments), detail)
		}
		return m.ID.String(), detail, m.CreatedAt.Format(time.RFC3339)
	case strings.HasPrefix(key, "user:"):
		var u domain.User
		if err := json.Unmarshal(value, &u); err != nil {
			return "", fmt.Sprintf("undecodable: %v", err), ""
		}
		return u.ID, fmt.Sprintf("%s (@%s)", u.Name, u.Username), u.CreatedAt.Format(time.RFC3339)
	case strings.HasPrefix(key, "chat:"):
		var c domain.Chat
		if err := json.Unmarshal(value, &c); err != nil {
			return "", fmt.Sprintf("undecodable: %v", err), ""
		}
		return c.ID, fmt.Sprintf("%s, %d members", c.Name, len(c.Members)), c.CreatedAt.Format(time.RFC3339)
	default:
		return "", string(value), ""
	}
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
