package session

import (
	"encoding/json"
	"errors"
)

// ErrCorrupt is returned by Decode for payloads that are not a session object.
var ErrCorrupt = errors.New("session payload corrupt")

// Encode serializes d into the opaque string handed to store adapters.
func Encode(d *Data) (string, error) {
	if d == nil {
		return "", errors.New("nil session data")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a stored payload. Anything other than a JSON object with a
// user id is reported as ErrCorrupt.
func Decode(payload string) (*Data, error) {
	var d Data
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, ErrCorrupt
	}
	if d.UserID == "" {
		return nil, ErrCorrupt
	}
	return &d, nil
}
