package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Entry is one sanctioned person
type Entry struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	DOB             string   `json:"dob,omitempty"`
	PassportNumbers []string `json:"passport_numbers,omitempty"`
}

// Source supplies watchlist entries
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// SliceSource serves entries held in memory
type SliceSource []Entry

func (s SliceSource) Entries(context.Context) ([]Entry, error) {
	return s, nil
}

// ReaderSource decodes a JSON array of entries from R
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(s.R).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding watchlist: %w", err)
	}
	return entries, ctx.Err()
}

// JSONFileSource reads a JSON array of entries from Path
type JSONFileSource struct {
	Path string
}

func (s JSONFileSource) Entries(ctx context.Context) ([]Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening watchlist: %w", err)
	}
	defer f.Close()
	return ReaderSource{R: f}.Entries(ctx)
}
