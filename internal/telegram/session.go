package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"gorm.io/gorm"
)

// QRBundle holds the raw MTProto client used for QR login. The regular
// client stack performs interactive CLI auth on its own, which a QR flow
// must not trigger.
type QRBundle struct {
	Client     *tdclient.Client
	Dispatcher tg.UpdateDispatcher
	Storage    *session.StorageMemory
}

// NewQRBundle creates a raw client with in-memory session storage. The
// dispatcher receives the login token updates the QR flow waits on.
func NewQRBundle(apiID int, apiHash string) *QRBundle {
	memStorage := &session.StorageMemory{}
	dispatcher := tg.NewUpdateDispatcher()

	client := tdclient.NewClient(apiID, apiHash, tdclient.Options{
		SessionStorage: memStorage,
		UpdateHandler:  &dispatcher,
	})

	return &QRBundle{
		Client:     client,
		Dispatcher: dispatcher,
		Storage:    memStorage,
	}
}

// ConvertSession converts raw session data to the stored session format,
// which wraps the raw JSON in a versioned envelope.
func ConvertSession(data *session.Data) (*storage.Session, error) {
	if data == nil {
		return nil, fmt.Errorf("session data is nil")
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}

	return &storage.Session{
		Version: storage.LatestVersion,
		Data:    dataJSON,
	}, nil
}

// SaveSessionFile writes an authorized session into the sqlite session file
// the relay starts from.
func SaveSessionFile(path string, data *session.Data) error {
	sess, err := ConvertSession(data)
	if err != nil {
		return err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	if err := db.AutoMigrate(&storage.Session{}); err != nil {
		return fmt.Errorf("migrate session schema: %w", err)
	}
	if err := db.Save(sess).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
