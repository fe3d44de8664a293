package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrMalformedPayload: the body is not a JSON object carrying a message object.
	ErrMalformedPayload = errors.New("telegram: malformed payload")
	// ErrInvalidFields: chat or from is missing, not an object, or has a non-integer id.
	ErrInvalidFields = errors.New("telegram: invalid message fields")
)

// Inbound is a validated message update.
type Inbound struct {
	// Update is the full decoded update; nil when fields outside chat/from/text
	// do not match the Bot API types.
	Update *tele.Update
	ChatID int64
	UserID int64
	Text   string
}

// UpdateID returns the update id when the payload carried one.
func (in *Inbound) UpdateID() int {
	if in == nil || in.Update == nil {
		return 0
	}
	return in.Update.ID
}

// ParseUpdate validates body and extracts the fields the webhook needs.
func ParseUpdate(body []byte) (*Inbound, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil || root == nil {
		return nil, ErrMalformedPayload
	}
	msgRaw, ok := root["message"]
	if !ok || !isObject(msgRaw) {
		return nil, ErrMalformedPayload
	}
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(msgRaw, &msg); err != nil {
		return nil, ErrMalformedPayload
	}

	chatID, err := objectID(msg["chat"])
	if err != nil {
		return nil, err
	}
	userID, err := objectID(msg["from"])
	if err != nil {
		return nil, err
	}

	in := &Inbound{ChatID: chatID, UserID: userID}
	if raw, ok := msg["text"]; ok {
		var text string
		if json.Unmarshal(raw, &text) == nil {
			in.Text = text
		}
	}

	var upd tele.Update
	if json.Unmarshal(body, &upd) == nil {
		in.Update = &upd
	}
	return in, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func objectID(raw json.RawMessage) (int64, error) {
	if raw == nil || !isObject(raw) {
		return 0, ErrInvalidFields
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, ErrInvalidFields
	}
	id, ok := integer(obj["id"])
	if !ok {
		return 0, ErrInvalidFields
	}
	return id, nil
}

// integer accepts JSON numbers with an integral value, e.g. 42 or 42.0.
func integer(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	n := json.Number(raw)
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
