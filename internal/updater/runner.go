package updater

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"kimi-assistant/internal/singbox"
	"kimi-assistant/internal/subscription"
)

// Kinds of generated configuration files.
const (
	KindPro      = "pro"
	KindPersonal = "air-personal"
	KindFriend   = "air-friend"
)

// FriendFile is the name of the shareable variant.
const FriendFile = "Singbox_Air_V7_8_Generated.json"

// PersonalFile names the personal variant after the version of the Pro
// file it is derived from.
func PersonalFile(proFile string) string {
	return fmt.Sprintf("Singbox_Air_V%s_Generated.json", singbox.VersionFromName(proFile))
}

// Output is one generated configuration file.
type Output struct {
	Kind      string
	Path      string
	Outbounds int
}

// Report describes a run that found a new subscription.
type Report struct {
	Version string
	At      time.Time
	// Changes is nil on the first run, when there is nothing to compare.
	Changes *subscription.Changes
	Update  singbox.UpdateReport
	Files   []Output
}

// Notifier delivers a report once the files are written.
type Notifier interface {
	SendUpdate(ctx context.Context, r *Report) error
}

// Checker reports whether the subscription changed. Commit records an
// updated result as handled.
type Checker interface {
	Check(ctx context.Context) (*subscription.Result, error)
	Commit(res *subscription.Result) error
}

type Runner struct {
	checker    Checker
	rules      singbox.Rules
	baseConfig string
	outputDir  string
	notifier   Notifier
	now        func() time.Time
	log        *zap.Logger
}

// New builds a runner. notifier may be nil.
func New(checker Checker, rules singbox.Rules, baseConfig, outputDir string, notifier Notifier, log *zap.Logger) *Runner {
	return &Runner{
		checker:    checker,
		rules:      rules,
		baseConfig: baseConfig,
		outputDir:  outputDir,
		notifier:   notifier,
		now:        time.Now,
		log:        log,
	}
}

// Run performs one update check. It returns a nil report when the
// subscription did not change. The new subscription is committed only
// after every file is written.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.log.Info("🚀 Starting update check")

	res, err := r.checker.Check(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}
	if !res.Updated {
		r.log.Info("✅ No updates needed")
		return nil, nil
	}
	r.log.Info("🆕 New version detected", zap.String("version", res.Version))

	at := r.now()
	report := &Report{Version: res.Version, At: at}
	if res.Previous != nil {
		ch := subscription.Diff(res.Previous, res.Current)
		report.Changes = &ch
		r.log.Info("📊 Changes summary",
			zap.Int("added", len(ch.Added)),
			zap.Int("removed", len(ch.Removed)),
			zap.Int("modified", len(ch.Modified)),
			zap.String("total", fmt.Sprintf("%d → %d", ch.TotalOld, ch.TotalNew)))
	}

	base, err := singbox.Load(r.baseConfig)
	if err != nil {
		return nil, fmt.Errorf("load base config: %w", err)
	}

	classes := r.rules.Classify(res.Current)
	for flag, n := range classes.Counts {
		r.log.Debug("region", zap.String("flag", flag), zap.Int("servers", n))
	}

	pro, upd := r.rules.Update(base, classes)
	report.Update = upd
	for _, g := range upd.Groups {
		r.log.Info("🔧 Group updated",
			zap.String("group", g.Group),
			zap.Int("subscription", g.Subscription),
			zap.Int("custom", g.Custom))
	}

	proName := fmt.Sprintf("Singbox_Pro_V5_9_Updated_%s.json", at.Format("20060102_150405"))
	outputs := []struct {
		kind string
		name string
		doc  singbox.Document
	}{
		{KindPro, proName, pro},
		{KindPersonal, PersonalFile(proName), r.rules.AirPersonal(pro)},
		{KindFriend, FriendFile, r.rules.AirFriend(pro)},
	}
	for _, o := range outputs {
		path := filepath.Join(r.outputDir, o.name)
		if err := singbox.Save(path, o.doc); err != nil {
			return nil, fmt.Errorf("write %s: %w", o.name, err)
		}
		report.Files = append(report.Files, Output{Kind: o.kind, Path: path, Outbounds: len(o.doc.Outbounds())})
		r.log.Info("📁 Generated", zap.String("kind", o.kind), zap.String("file", o.name))
	}

	if err := r.checker.Commit(res); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	r.log.Info("✅ Update completed successfully")

	if r.notifier != nil {
		r.log.Info("📱 Sending Telegram notification")
		if err := r.notifier.SendUpdate(ctx, report); err != nil {
			// The files are already written, so the run still counts.
			r.log.Warn("⚠️ Telegram notification failed", zap.Error(err))
		}
	}
	return report, nil
}
