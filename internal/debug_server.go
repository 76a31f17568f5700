package internal

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"pairchat/projection"
	"pairchat/repositories"
)

//go:embed inspect.html
var inspectPage string

const inspectRowLimit = 500

// DebugServer serves a read-only inspection UI over the message store and
// the in-memory timeline. It runs as a supervised worker on its own port
// and must never be exposed publicly.
type DebugServer struct {
	log      *slog.Logger
	db       *badger.DB
	timeline *projection.Timeline
	addr     string
	tmpl     *template.Template
}

func NewDebugServer(log *slog.Logger, db *badger.DB, timeline *projection.Timeline, addr string) *DebugServer {
	return &DebugServer{
		log:      log,
		db:       db,
		timeline: timeline,
		addr:     addr,
		tmpl:     template.Must(template.New("inspect").Parse(inspectPage)),
	}
}

func (s *DebugServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/messages", s.messages)
	mux.HandleFunc("/debug/timeline", s.timelineStats)

	server := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("debug server listening", "addr", s.addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

type inspectRow struct {
	Key     string
	ID      uint64
	Channel string
	Sender  string
	Text    string
	At      string
}

type inspectData struct {
	Prefix string
	Count  int
	Rows   []inspectRow
}

func (s *DebugServer) messages(w http.ResponseWriter, r *http.Request) {
	prefix := "msg:"
	if channel := r.URL.Query().Get("channel"); channel != "" {
		prefix += channel + ":"
	}

	data := inspectData{Prefix: prefix}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(data.Rows) < inspectRowLimit; it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			msg, err := repositories.DecodeMessage(value)
			if err != nil {
				s.log.Warn("undecodable record", "key", string(item.Key()), "error", err)
				continue
			}
			data.Rows = append(data.Rows, inspectRow{
				Key: string(item.Key()),
				ID:  msg.ID,
				// The raw name contains a control character; render it readably.
				Channel: strings.ReplaceAll(string(msg.Channel), "\x1f", " | "),
				Sender:  msg.Sender,
				Text:    msg.Text,
				At:      msg.CreatedAt.Format(time.RFC3339),
			})
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data.Count = len(data.Rows)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.log.Warn("failed to render inspection page", "error", err)
	}
}

func (s *DebugServer) timelineStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.timeline.Stats())
}
