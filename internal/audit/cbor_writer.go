package audit

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// CBORWriter writes audit events as a CBOR sequence with the same hash
// chain as FileWriter. The hash still covers the canonical JSON encoding,
// so a JSONL log and a CBOR log of the same events carry identical chains.
type CBORWriter struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *cbor.Encoder
	lastHash string
	path     string
}

var _ Writer = (*CBORWriter)(nil)

// NewCBORWriter creates a CBOR audit writer. If the file exists, the last
// event's hash is read so the chain continues across restarts.
func NewCBORWriter(path string) (*CBORWriter, error) {
	lastHash := GenesisHash
	if existing, err := os.ReadFile(path); err == nil && len(existing) > 0 {
		hash, err := readLastCBORHash(existing)
		if err != nil {
			return nil, fmt.Errorf("failed to read last hash from existing log: %w", err)
		}
		lastHash = hash
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &CBORWriter{
		file:     file,
		encoder:  cbor.NewEncoder(file),
		lastHash: lastHash,
		path:     path,
	}, nil
}

func readLastCBORHash(data []byte) (string, error) {
	decoder := cbor.NewDecoder(bytes.NewReader(data))
	lastHash := GenesisHash
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			break
		}
		if event.Hash != "" {
			lastHash = event.Hash
		}
	}
	return lastHash, nil
}

// Write logs an audit event with hash chaining.
func (w *CBORWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	event.HashPrev = w.lastHash

	canonical, err := event.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	hash := calculateHash(canonical, w.lastHash)
	event.Hash = hash

	if err := w.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	w.lastHash = hash
	return nil
}

// Close closes the audit log file.
func (w *CBORWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			return err
		}
		return w.file.Close()
	}
	return nil
}

// LastHash returns the hash of the last written event.
func (w *CBORWriter) LastHash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastHash
}

// Path returns the file path of the audit log.
func (w *CBORWriter) Path() string {
	return w.path
}

// ReadCBORLog decodes all events from a CBOR audit log file.
func ReadCBORLog(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	var events []Event
	decoder := cbor.NewDecoder(bytes.NewReader(data))
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			break
		}
		events = append(events, event)
	}
	return events, nil
}
