package repositories

import (
	"context"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"pairchat/domain"
	errs "pairchat/errors"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestMessages(t *testing.T, historyCap int) *MessageRepository {
	t.Helper()
	repo, err := NewMessageRepository(newTestDB(t), historyCap)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func draft(channel domain.ChannelName, text string) domain.MessageDraft {
	return domain.MessageDraft{
		Channel:     channel,
		SenderID:    1,
		Sender:      "alice@example.com",
		RecipientID: 2,
		Recipient:   "bob@example.com",
		Text:        text,
	}
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	req := require.New(t)
	repo := newTestMessages(t, 0)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	// When appending several messages
	var previous uint64
	for _, text := range []string{"first", "second", "third"} {
		msg, err := repo.Append(context.Background(), draft(channel, text))
		req.NoError(err)

		// Then every id is strictly greater than the one before
		if previous != 0 {
			req.Greater(msg.ID, previous)
		}
		req.False(msg.CreatedAt.IsZero())
		previous = msg.ID
	}
}

func TestAppendRejectsBlankText(t *testing.T) {
	req := require.New(t)
	repo := newTestMessages(t, 0)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	// When appending whitespace-only text
	_, err := repo.Append(context.Background(), draft(channel, "   \t"))

	// Then validation fails and nothing was stored
	req.ErrorIs(err, errs.ErrValidation)
	page, err := repo.History(context.Background(), channel, 10, nil)
	req.NoError(err)
	req.Empty(page)
}

func TestHistoryReturnsAppendOrder(t *testing.T) {
	req := require.New(t)
	repo := newTestMessages(t, 0)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	// Given three stored messages
	for _, text := range []string{"one", "two", "three"} {
		_, err := repo.Append(context.Background(), draft(channel, text))
		req.NoError(err)
	}

	// When reading the latest page
	page, err := repo.History(context.Background(), channel, 10, nil)
	req.NoError(err)

	// Then messages come back oldest first
	req.Len(page, 3)
	req.Equal("one", page[0].Text)
	req.Equal("three", page[2].Text)
}

func TestHistoryPaginatesBackwards(t *testing.T) {
	req := require.New(t)
	repo := newTestMessages(t, 0)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	texts := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, text := range texts {
		_, err := repo.Append(context.Background(), draft(channel, text))
		req.NoError(err)
	}

	// When reading the latest page of two
	latest, err := repo.History(context.Background(), channel, 2, nil)
	req.NoError(err)
	req.Len(latest, 2)
	req.Equal("m4", latest[0].Text)
	req.Equal("m5", latest[1].Text)

	// And walking backwards from its oldest entry
	cursor := latest[0].ID
	older, err := repo.History(context.Background(), channel, 2, &cursor)
	req.NoError(err)

	// Then the next page ends just before the cursor
	req.Len(older, 2)
	req.Equal("m2", older[0].Text)
	req.Equal("m3", older[1].Text)
}

func TestHistoryCapsOversizedRequests(t *testing.T) {
	req := require.New(t)
	repo := newTestMessages(t, 3)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	for i := 0; i < 6; i++ {
		_, err := repo.Append(context.Background(), draft(channel, "hello"))
		req.NoError(err)
	}

	// When asking for more than the configured cap
	page, err := repo.History(context.Background(), channel, 100, nil)
	req.NoError(err)

	// Then the page is clamped
	req.Len(page, 3)
}

func TestHistoryIsolatesChannels(t *testing.T) {
	req := require.New(t)
	repo := newTestMessages(t, 0)
	first := domain.ChannelFor("alice@example.com", "bob@example.com")
	second := domain.ChannelFor("alice@example.com", "carol@example.com")

	_, err := repo.Append(context.Background(), draft(first, "for bob"))
	req.NoError(err)
	other := draft(second, "for carol")
	other.Recipient = "carol@example.com"
	_, err = repo.Append(context.Background(), other)
	req.NoError(err)

	page, err := repo.History(context.Background(), second, 10, nil)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("for carol", page[0].Text)
}

func TestHistoryIgnoresChannelsExtendingThePrefix(t *testing.T) {
	req := require.New(t)
	repo := newTestMessages(t, 0)

	// Given a channel whose name extends another channel's key prefix.
	// Registration rejects identifiers that could produce this; the store
	// must stay correct on its own.
	short := domain.ChannelName("alice@example.com\x1fbob@example.com")
	extended := domain.ChannelName("alice@example.com\x1fbob@example.com:0@example.com")

	_, err := repo.Append(context.Background(), draft(short, "for bob"))
	req.NoError(err)
	_, err = repo.Append(context.Background(), draft(extended, "smuggled"))
	req.NoError(err)

	// When reading the shorter channel's history
	page, err := repo.History(context.Background(), short, 10, nil)
	req.NoError(err)

	// Then the extended channel's records do not leak into the page
	req.Len(page, 1)
	req.Equal("for bob", page[0].Text)
}
