package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/logger"
)

// maxSnapshotSize bounds remote snapshot downloads
const maxSnapshotSize = 256 << 20

// Snapshot is the JSON transport form of a tree. Integers are decimal strings.
type Snapshot struct {
	MaxDepth int             `json:"max_depth"`
	Root     field.Decimal   `json:"root"`
	Leaves   []field.Decimal `json:"leaves"`
}

// Snapshot exports the leaves and root
func (t *Tree) Snapshot() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := &Snapshot{
		MaxDepth: t.maxDepth,
		Root:     field.NewDecimal(t.root()),
		Leaves:   make([]field.Decimal, len(t.nodes[0])),
	}
	for i, l := range t.nodes[0] {
		s.Leaves[i] = field.NewDecimal(new(big.Int).Set(l))
	}
	return s
}

// FromSnapshot rebuilds a tree and checks the recorded root when present
func FromSnapshot(ctx context.Context, s *Snapshot) (*Tree, error) {
	t := New(s.MaxDepth)
	leaves := make([]*big.Int, len(s.Leaves))
	for i, l := range s.Leaves {
		if l.Int == nil {
			return nil, fmt.Errorf("snapshot leaf %d is null", i)
		}
		leaves[i] = l.Int
	}
	if err := t.InsertMany(ctx, leaves); err != nil {
		return nil, err
	}
	if s.Root.Int != nil && s.Root.Cmp(t.Root()) != 0 {
		return nil, fmt.Errorf("snapshot root %s does not match rebuilt root %s", s.Root, t.Root())
	}
	return t, nil
}

// Export writes the snapshot as JSON
func (t *Tree) Export(w io.Writer) error {
	return json.NewEncoder(w).Encode(t.Snapshot())
}

// Import reads a JSON snapshot
func Import(ctx context.Context, r io.Reader) (*Tree, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return FromSnapshot(ctx, &s)
}

// LoadFile imports a snapshot from disk
func LoadFile(ctx context.Context, path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Import(ctx, f)
}

// SaveFile exports a snapshot to disk
func (t *Tree) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := t.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var httpClient = &http.Client{}

// FetchSnapshot downloads and imports a snapshot published at url
func FetchSnapshot(ctx context.Context, url string) (tree *Tree, err error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		err2 := httpResp.Body.Close()
		if err == nil {
			err = err2
		}
	}()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %v", httpResp.StatusCode)
	}

	tree, err = Import(ctx, io.LimitReader(httpResp.Body, maxSnapshotSize))
	if err != nil {
		return nil, err
	}
	logger.Logger().Info().Str("url", url).Int("leaves", tree.Size()).Str("root", tree.RootHex()).Msg("fetched registry snapshot")
	return tree, nil
}
