// Package repositories provides the Badger-backed persistence layer.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"pairchat/domain"
	errs "pairchat/errors"
)

const (
	messagePrefix      = "msg:"
	messageSequenceKey = "seq:message"
	// sequenceBandwidth is how many ids Badger leases to the process at once.
	sequenceBandwidth = 128
	// defaultHistoryCap bounds a single history page when no limit was
	// configured. Older messages stay reachable through the cursor.
	defaultHistoryCap = 200
)

// IMessageRepository is the message store contract: append-only writes with
// store-assigned ids, and cursor-based backwards pagination.
type IMessageRepository interface {
	Append(ctx context.Context, draft domain.MessageDraft) (domain.Message, error)
	History(ctx context.Context, channel domain.ChannelName, limit int, before *uint64) ([]domain.Message, error)
}

// MessageRepository persists messages in Badger under
// msg:{channel}:{sequence}. The zero-padded sequence keeps lexicographic
// key order identical to numeric id order, so a prefix iteration walks a
// channel in append order without any sort step.
type MessageRepository struct {
	db         *badger.DB
	seq        *badger.Sequence
	historyCap int
}

type storedMessage struct {
	ID          uint64 `json:"id"`
	Channel     string `json:"channel"`
	SenderID    int64  `json:"sender_id"`
	Sender      string `json:"sender"`
	RecipientID int64  `json:"recipient_id"`
	Recipient   string `json:"recipient"`
	Text        string `json:"text"`
	At          int64  `json:"at"`
}

func NewMessageRepository(db *badger.DB, historyCap int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("%w: message sequence: %v", errs.ErrStorage, err)
	}
	if historyCap <= 0 {
		historyCap = defaultHistoryCap
	}
	return &MessageRepository{db: db, seq: seq, historyCap: historyCap}, nil
}

// Close releases the leased sequence band back to Badger.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// Append validates the draft, assigns the next id and writes the record.
// Nothing is written when validation fails.
func (m *MessageRepository) Append(ctx context.Context, draft domain.MessageDraft) (domain.Message, error) {
	if err := validateDraft(draft); err != nil {
		return domain.Message{}, err
	}
	next, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: next message id: %v", errs.ErrStorage, err)
	}

	msg := domain.Message{
		// Badger sequences start at zero; message ids start at one.
		ID:          next + 1,
		Channel:     draft.Channel,
		SenderID:    draft.SenderID,
		Sender:      draft.Sender,
		RecipientID: draft.RecipientID,
		Recipient:   draft.Recipient,
		Text:        draft.Text,
		CreatedAt:   time.Now().UTC(),
	}
	value, err := json.Marshal(toStored(msg))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: encode message: %v", errs.ErrStorage, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg.Channel, msg.ID), value)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append message: %v", errs.ErrStorage, err)
	}
	return msg, nil
}

// History returns up to limit messages of the channel that precede the
// cursor, in ascending id order. A nil cursor means "latest page". The
// configured cap applies even when the caller asks for more.
func (m *MessageRepository) History(ctx context.Context, channel domain.ChannelName, limit int, before *uint64) ([]domain.Message, error) {
	if limit <= 0 || limit > m.historyCap {
		limit = m.historyCap
	}
	prefix := []byte(messagePrefix + string(channel) + ":")

	page := make([]domain.Message, 0, limit)
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(messageKey(channel, maxSequence(before)))
		// A reverse seek can land on the cursor entry itself; the page must
		// start strictly before it.
		if before != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(messageKey(channel, *before)) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix) && len(page) < limit; it.Next() {
			var rec storedMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode message %s: %v", it.Item().Key(), err)
			}
			// Key prefixes are not self-delimiting: a channel whose name
			// extends this one shares the prefix. Skip foreign records.
			if rec.Channel != string(channel) {
				continue
			}
			page = append(page, fromStored(rec))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %v", errs.ErrStorage, err)
	}

	// Reverse iteration produced newest-first; callers want append order.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

// DecodeMessage decodes a raw Badger value into a Message. Used by the
// inspection tooling which iterates keys outside this repository.
func DecodeMessage(value []byte) (domain.Message, error) {
	var rec storedMessage
	if err := json.Unmarshal(value, &rec); err != nil {
		return domain.Message{}, fmt.Errorf("decode message: %v", err)
	}
	return fromStored(rec), nil
}

func validateDraft(draft domain.MessageDraft) error {
	switch {
	case strings.TrimSpace(draft.Text) == "":
		return fmt.Errorf("%w: empty message text", errs.ErrValidation)
	case draft.Sender == "" || draft.Recipient == "":
		return fmt.Errorf("%w: missing participant identifier", errs.ErrValidation)
	case draft.Channel == "":
		return fmt.Errorf("%w: missing channel", errs.ErrValidation)
	}
	return nil
}

func messageKey(channel domain.ChannelName, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", messagePrefix, channel, id))
}

func maxSequence(before *uint64) uint64 {
	if before == nil {
		return ^uint64(0)
	}
	return *before
}

func toStored(msg domain.Message) storedMessage {
	return storedMessage{
		ID:          msg.ID,
		Channel:     string(msg.Channel),
		SenderID:    msg.SenderID,
		Sender:      msg.Sender,
		RecipientID: msg.RecipientID,
		Recipient:   msg.Recipient,
		Text:        msg.Text,
		At:          msg.CreatedAt.UnixNano(),
	}
}

func fromStored(rec storedMessage) domain.Message {
	return domain.Message{
		ID:          rec.ID,
		Channel:     domain.ChannelName(rec.Channel),
		SenderID:    rec.SenderID,
		Sender:      rec.Sender,
		RecipientID: rec.RecipientID,
		Recipient:   rec.Recipient,
		Text:        rec.Text,
		CreatedAt:   time.Unix(0, rec.At).UTC(),
	}
}
