package telegram

import (
	"encoding/json"
	"fmt"

	"book-reader-bot/internal/domain"
)

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	Keyboard       [][]keyboardButton `json:"keyboard,omitempty"`
	ResizeKeyboard bool               `json:"resize_keyboard,omitempty"`
	RemoveKeyboard bool               `json:"remove_keyboard,omitempty"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

type getFileRequest struct {
	FileID string `json:"file_id"`
}

type file struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// Update is an incoming Bot API update. Only message updates are modelled.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type message struct {
	MessageID int64     `json:"message_id"`
	From      *user     `json:"from,omitempty"`
	Chat      chat      `json:"chat"`
	Text      string    `json:"text,omitempty"`
	Document  *document `json:"document,omitempty"`
}

type user struct {
	ID int64 `json:"id"`
}

type chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// Event converts the update into a domain event. The reader is the chat the
// message came from, which is also where replies go.
func (u Update) Event() (domain.Event, bool) {
	if u.Message == nil || u.Message.Chat.ID == 0 {
		return domain.Event{}, false
	}
	ev := domain.Event{
		ReaderID: domain.ReaderID(u.Message.Chat.ID),
		Text:     u.Message.Text,
	}
	if d := u.Message.Document; d != nil {
		ev.Document = &domain.Upload{FileName: d.FileName, FileID: d.FileID, Size: d.FileSize}
	}
	return ev, true
}

// ParseUpdate decodes a webhook body. The boolean is false for updates that
// carry no message.
func ParseUpdate(raw []byte) (domain.Event, bool, error) {
	var u Update
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.Event{}, false, fmt.Errorf("telegram: decode update: %w", err)
	}
	ev, ok := u.Event()
	return ev, ok, nil
}
