package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/adapter"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

// Archiver stores the transcript of a session that leaves the store
type Archiver interface {
	Archive(ctx context.Context, session Session) error
}

// Transcript is the archived form of a session
type Transcript struct {
	SessionID  string       `json:"session_id"`
	ArchivedAt time.Time    `json:"archived_at"`
	Turns      []model.Turn `json:"turns"`
}

type storageArchiver struct {
	storage adapter.Storage
	now     func() time.Time
}

// NewStorageArchiver writes transcripts as JSON objects named sessions/<id>/<uuid>.json
func NewStorageArchiver(storage adapter.Storage) Archiver {
	return &storageArchiver{storage: storage, now: time.Now}
}

func (a *storageArchiver) Archive(ctx context.Context, session Session) error {
	key := "sessions/" + session.ID + "/" + uuid.NewString() + ".json"

	data, err := json.Marshal(Transcript{
		SessionID:  session.ID,
		ArchivedAt: a.now().UTC(),
		Turns:      session.Turns,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal transcript", goerr.V("session_id", session.ID))
	}

	writer, err := a.storage.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer", goerr.V("key", key))
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write transcript", goerr.V("key", key))
	}
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}
	return nil
}
