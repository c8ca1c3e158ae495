package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// stateVersion is bumped whenever the encoded layout changes.
// Older or newer encodings are never migrated, they are treated as absent.
const stateVersion byte = 1

var stateMagic = []byte("NCCS")

var (
	// ErrCorrupt reports persisted state that cannot be decoded
	ErrCorrupt = errors.New("corrupt compilation state")

	// ErrVersionMismatch reports persisted state written with another encoding version
	ErrVersionMismatch = errors.New("compilation state version mismatch")
)

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

// EncodeState serializes a state as magic, version byte and zstd compressed JSON
func EncodeState(s *State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	out := make([]byte, 0, len(stateMagic)+1+len(data)/2)
	out = append(out, stateMagic...)
	out = append(out, stateVersion)

	return encoder.EncodeAll(data, out), nil
}

// DecodeState parses bytes produced by EncodeState
func DecodeState(b []byte) (*State, error) {
	if len(b) < len(stateMagic)+1 || !bytes.Equal(b[:len(stateMagic)], stateMagic) {
		return nil, ErrCorrupt
	}

	if v := b[len(stateMagic)]; v != stateVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, v, stateVersion)
	}

	data, err := decoder.DecodeAll(b[len(stateMagic)+1:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if s.Sources == nil {
		s.Sources = make(map[string]FileRecord)
	}

	if s.Headers == nil {
		s.Headers = make(map[string]FileRecord)
	}

	return &s, nil
}
