package subscription

import (
	"context"
	"sort"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"kimi-assistant/internal/singbox"
)

// Result is the outcome of one check.
type Result struct {
	Updated bool
	// Version names the snapshot holding Current: the latest stored one,
	// or when Updated, the one Commit will write.
	Version  string
	Current  singbox.Document
	Previous singbox.Document
	FirstRun bool
	at       time.Time
}

type Checker struct {
	source  Source
	history *History
	now     func() time.Time
	log     *zap.Logger
}

func NewChecker(source Source, history *History, log *zap.Logger) *Checker {
	return &Checker{source: source, history: history, now: time.Now, log: log}
}

// Check downloads the subscription and compares it with the latest
// snapshot. A first download or a changed hash is reported as an
// update; nothing is stored until Commit.
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	current, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.log.Info("✅ Subscription downloaded", zap.Int("servers", len(current.Outbounds())))

	latestVersion, previous, err := c.history.Latest()
	if err != nil {
		return nil, err
	}

	at := c.now()
	if previous == nil {
		c.log.Info("🆕 First run, no stored version")
		return &Result{Updated: true, Version: VersionName(at), Current: current, FirstRun: true, at: at}, nil
	}

	oldHash, newHash := Hash(previous), Hash(current)
	if oldHash == newHash {
		c.log.Info("✅ No changes detected", zap.String("version", latestVersion))
		return &Result{Version: latestVersion, Current: current, Previous: previous}, nil
	}

	c.log.Info("🔄 Changes detected",
		zap.String("old_hash", oldHash[:16]),
		zap.String("new_hash", newHash[:16]))
	return &Result{Updated: true, Version: VersionName(at), Current: current, Previous: previous, at: at}, nil
}

// Commit stores the subscription of an updated result as the latest
// snapshot. Call it once the result has been acted on, so a failed run
// is retried next time.
func (c *Checker) Commit(res *Result) error {
	if !res.Updated {
		return nil
	}
	version, err := c.history.Save(res.Current, res.at)
	if err != nil {
		return err
	}
	c.log.Info("💾 Snapshot saved", zap.String("version", version))
	return nil
}

// Changes summarises how the servers of two subscriptions differ.
type Changes struct {
	Added    []string
	Removed  []string
	Modified []string
	TotalOld int
	TotalNew int
}

// Diff compares servers by tag.
func Diff(old, cur singbox.Document) Changes {
	oldByTag := byTag(old)
	newByTag := byTag(cur)

	ch := Changes{TotalOld: len(oldByTag), TotalNew: len(newByTag)}
	for tag, o := range newByTag {
		prev, ok := oldByTag[tag]
		switch {
		case !ok:
			ch.Added = append(ch.Added, tag)
		case !cmp.Equal(map[string]any(prev), map[string]any(o)):
			ch.Modified = append(ch.Modified, tag)
		}
	}
	for tag := range oldByTag {
		if _, ok := newByTag[tag]; !ok {
			ch.Removed = append(ch.Removed, tag)
		}
	}

	sort.Strings(ch.Added)
	sort.Strings(ch.Removed)
	sort.Strings(ch.Modified)
	return ch
}

func byTag(doc singbox.Document) map[string]singbox.Outbound {
	out := make(map[string]singbox.Outbound)
	for _, o := range doc.Outbounds() {
		out[o.Tag()] = o
	}
	return out
}
