package subscription

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kimi-assistant/internal/singbox"
)

const snapshotPrefix = "subscription_"

// Hash fingerprints the servers of a subscription. Each outbound is
// canonicalised with sorted keys and the list is sorted, so a bundle
// that only reorders its servers hashes the same.
func Hash(doc singbox.Document) string {
	obs := doc.Outbounds()
	parts := make([]string, 0, len(obs))
	for _, o := range obs {
		b, err := json.Marshal(map[string]any(o))
		if err != nil {
			// Decoded JSON always re-encodes.
			panic(err)
		}
		parts = append(parts, string(b))
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// History keeps timestamped snapshots of downloaded subscriptions.
type History struct {
	dir string
}

func NewHistory(dir string) (*History, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &History{dir: dir}, nil
}

// Latest returns the newest snapshot and its version name. It returns
// an empty name and nil document when there is none.
func (h *History) Latest() (string, singbox.Document, error) {
	files, err := filepath.Glob(filepath.Join(h.dir, snapshotPrefix+"*.json"))
	if err != nil {
		return "", nil, err
	}
	if len(files) == 0 {
		return "", nil, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	f, err := os.Open(files[0])
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	doc, err := singbox.Decode(f)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", files[0], err)
	}
	return strings.TrimSuffix(filepath.Base(files[0]), ".json"), doc, nil
}

// VersionName is the snapshot name for a download made at at.
func VersionName(at time.Time) string {
	return snapshotPrefix + at.Format("20060102_150405")
}

// Save stores doc as a new snapshot named after at.
func (h *History) Save(doc singbox.Document, at time.Time) (string, error) {
	version := VersionName(at)
	if err := singbox.Save(filepath.Join(h.dir, version+".json"), doc); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return version, nil
}
