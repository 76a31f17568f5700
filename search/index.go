// Package search maintains a full-text index over stored messages.
package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"

	"pairchat/domain"
)

// Index wraps a bluge writer. Messages are indexed after they were stored;
// the message store stays the source of truth and the index can always be
// rebuilt from it.
type Index struct {
	writer *bluge.Writer
}

// Open creates or reopens the index at path.
func Open(path string) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open search index: %v", err)
	}
	return &Index{writer: writer}, nil
}

func (ix *Index) Close() error {
	return ix.writer.Close()
}

// Add indexes one message. Re-adding the same id overwrites the previous
// document, so replays are harmless.
func (ix *Index) Add(msg domain.Message) error {
	doc := bluge.NewDocument(strconv.FormatUint(msg.ID, 10)).
		AddField(bluge.NewKeywordField("channel", string(msg.Channel))).
		AddField(bluge.NewTextField("text", msg.Text).StoreValue()).
		AddField(bluge.NewKeywordField("sender", msg.Sender).StoreValue()).
		AddField(bluge.NewKeywordField("recipient", msg.Recipient).StoreValue()).
		AddField(bluge.NewStoredOnlyField("at", []byte(strconv.FormatInt(msg.CreatedAt.UnixNano(), 10))))
	return ix.writer.Update(doc.ID(), doc)
}

// Search returns the messages of the channel matching the query terms,
// most relevant first.
func (ix *Index) Search(ctx context.Context, channel domain.ChannelName, terms string, limit int) ([]domain.Message, error) {
	reader, err := ix.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %v", err)
	}
	defer func() { _ = reader.Close() }()

	if limit <= 0 {
		limit = 25
	}
	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(channel)).SetField("channel")).
		AddMust(bluge.NewMatchQuery(terms).SetField("text"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("search index: %v", err)
	}

	var hits []domain.Message
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate search hits: %v", err)
		}
		if match == nil {
			break
		}
		msg := domain.Message{Channel: channel}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				msg.ID, _ = strconv.ParseUint(string(value), 10, 64)
			case "text":
				msg.Text = string(value)
			case "sender":
				msg.Sender = string(value)
			case "recipient":
				msg.Recipient = string(value)
			case "at":
				if nanos, err := strconv.ParseInt(string(value), 10, 64); err == nil {
					msg.CreatedAt = time.Unix(0, nanos).UTC()
				}
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("read search hit: %v", err)
		}
		hits = append(hits, msg)
	}
	return hits, nil
}
