// Package json persists textstream transcripts as versioned JSON files.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/textstream"
)

// envelope is the v1 wire format for a persisted transcript.
type envelope struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Identity  string    `json:"identity,omitempty"`
	Phase     string    `json:"phase"`
	Text      string    `json:"text"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// MarshalTranscript serializes a Transcript to JSON in v1 envelope format.
func MarshalTranscript(t textstream.Transcript) ([]byte, error) {
	env := envelope{
		Version:   1,
		ID:        t.ID,
		Prompt:    t.Prompt,
		Identity:  t.Identity,
		Phase:     t.Phase().String(),
		Text:      t.Text,
		Error:     t.Error,
		StartedAt: t.StartedAt,
		EndedAt:   t.EndedAt,
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalTranscript deserializes a Transcript from JSON in v1 envelope format.
func UnmarshalTranscript(data []byte) (textstream.Transcript, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return textstream.Transcript{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return textstream.Transcript{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	var complete bool
	switch env.Phase {
	case textstream.PhaseComplete.String():
		complete = true
	case textstream.PhaseErrored.String():
		if env.Error == "" {
			return textstream.Transcript{}, fmt.Errorf("errored transcript without error message")
		}
	case textstream.PhaseIdle.String():
	default:
		return textstream.Transcript{}, fmt.Errorf("unknown phase: %q", env.Phase)
	}
	return textstream.Transcript{
		ID:        env.ID,
		Prompt:    env.Prompt,
		Identity:  env.Identity,
		Text:      env.Text,
		Complete:  complete,
		Error:     env.Error,
		StartedAt: env.StartedAt,
		EndedAt:   env.EndedAt,
	}, nil
}

// Save writes a Transcript to a JSON file, creating parent directories as needed.
func Save(path string, t textstream.Transcript) error {
	data, err := MarshalTranscript(t)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Transcript from a JSON file.
func Load(path string) (textstream.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return textstream.Transcript{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalTranscript(data)
}
