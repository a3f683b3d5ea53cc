package examination

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("examination not found")
	// ErrNoFile is returned when an examination has no attached file.
	ErrNoFile = errors.New("examination has no file")
)

// Examination is an instrumental examination record with an optional
// attached file. FileKey addresses the file in the FileStore.
type Examination struct {
	ID          int64
	TelegramID  int64
	Name        string
	Date        time.Time
	Description string
	FileKey     string
	CreatedAt   time.Time
}

// Upload is a file received from the user.
type Upload struct {
	Name string
	Data []byte
}
