package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/changemon/internal/diff"
	"github.com/nao1215/changemon/internal/history"
	"github.com/nao1215/changemon/internal/model"
)

// Ledger holds the kind-specific compare, describe and commit logic.
type Ledger interface {
	// Changed reports whether the observed snapshot differs from the
	// latest committed record. A target without history is changed.
	Changed(obs *model.Observation) (bool, error)

	// Describe sets obs.Event and obs.Notify for a changed observation.
	Describe(obs *model.Observation) error

	// Commit durably records the observed snapshot.
	Commit(obs *model.Observation) error
}

const (
	// DiffArtifactName is the attachment name of the byte diff.
	DiffArtifactName = "diff.html"

	// DiffContentType is the content type of the byte diff.
	DiffContentType = "text/html"
)

// ByteLedger is the Ledger of the bytes kind. The first observation of a
// target is enrolled silently; every later change is notified with an
// HTML diff against the previous payload.
type ByteLedger struct {
	store  *history.ByteStore
	logger *slog.Logger
}

// NewByteLedger creates a ByteLedger over store.
func NewByteLedger(store *history.ByteStore, logger *slog.Logger) *ByteLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ByteLedger{store: store, logger: logger}
}

func byteSnapshot(obs *model.Observation) (*model.ByteSnapshot, error) {
	snap, ok := obs.Snapshot.(*model.ByteSnapshot)
	if !ok || snap == nil {
		return nil, fmt.Errorf("observation of %s holds no byte snapshot", obs.Target)
	}
	return snap, nil
}

// Changed compares the fingerprint with the latest stored one.
func (l *ByteLedger) Changed(obs *model.Observation) (bool, error) {
	if obs.Fingerprint == "" {
		return false, fmt.Errorf("observation of %s has no fingerprint", obs.Target)
	}
	latest, ok := l.store.Latest(obs.Target)
	return !ok || latest != obs.Fingerprint, nil
}

// Describe builds the event and, when a previous version exists, the
// HTML diff. A diff that cannot be rendered is logged and the event is
// sent without attachment.
func (l *ByteLedger) Describe(obs *model.Observation) error {
	snap, err := byteSnapshot(obs)
	if err != nil {
		return err
	}

	event := &model.ChangeEvent{
		Target:      obs.Target,
		Kind:        model.KindBytes,
		Current:     obs.Fingerprint,
		CurrentSize: len(snap.Body),
		DetectedAt:  time.Now(),
	}

	prev, ok := l.store.Latest(obs.Target)
	if !ok {
		event.FirstObservation = true
		obs.Event = event
		obs.Notify = false
		return nil
	}

	event.Previous = prev
	oldBody, err := l.store.Payload(prev)
	if err != nil {
		if !errors.Is(err, history.ErrPayloadNotFound) && !errors.Is(err, history.ErrInvalidFingerprint) {
			return err
		}
		l.logger.Warn("previous payload missing, diffing against empty body",
			"target", obs.Target,
			"fingerprint", prev,
		)
	}
	event.PreviousSize = len(oldBody)

	d := diff.Bytes(oldBody, snap.Body)
	event.LinesAdded = d.Added
	event.LinesRemoved = d.Removed

	html, err := diff.RenderHTML(d, prev.String(), obs.Fingerprint.String())
	if err != nil {
		l.logger.Warn("failed to render diff", "target", obs.Target, "error", err)
	} else {
		event.Artifact = &model.Artifact{
			Name:        DiffArtifactName,
			ContentType: DiffContentType,
			Data:        html,
		}
	}

	obs.Event = event
	obs.Notify = true
	return nil
}

// Commit appends the fingerprint and stores the payload.
func (l *ByteLedger) Commit(obs *model.Observation) error {
	snap, err := byteSnapshot(obs)
	if err != nil {
		return err
	}
	return l.store.Append(obs.Target, obs.Fingerprint, snap.Body)
}

// SetRenderer renders the set-kind report artifact.
type SetRenderer interface {
	RenderSet(domain model.Target, snap *model.SetSnapshot, d diff.SetDiff) (*model.Artifact, error)
}

// SetLedger is the Ledger of the set kind. Any added or removed member,
// including every member of a first observation, is notified with an
// HTML report attached.
type SetLedger struct {
	store    *history.SetStore
	renderer SetRenderer
	logger   *slog.Logger
}

// NewSetLedger creates a SetLedger. A nil renderer sends notifications
// without attachment.
func NewSetLedger(store *history.SetStore, renderer SetRenderer, logger *slog.Logger) *SetLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetLedger{store: store, renderer: renderer, logger: logger}
}

func setSnapshot(obs *model.Observation) (*model.SetSnapshot, error) {
	snap, ok := obs.Snapshot.(*model.SetSnapshot)
	if !ok || snap == nil {
		return nil, fmt.Errorf("observation of %s holds no set snapshot", obs.Target)
	}
	return snap, nil
}

// Changed compares the member set with the stored one by value.
func (l *SetLedger) Changed(obs *model.Observation) (bool, error) {
	snap, err := setSnapshot(obs)
	if err != nil {
		return false, err
	}
	prev, ok := l.store.Latest(obs.Target)
	return !ok || !prev.Equal(snap), nil
}

// Describe computes the membership delta.
// A first observation without members is recorded silently.
func (l *SetLedger) Describe(obs *model.Observation) error {
	snap, err := setSnapshot(obs)
	if err != nil {
		return err
	}

	prev, ok := l.store.Latest(obs.Target)
	if !ok {
		prev = nil
	}
	d := diff.Sets(prev, snap)

	obs.Event = &model.ChangeEvent{
		Target:           obs.Target,
		Kind:             model.KindSet,
		FirstObservation: !ok,
		Added:            d.Added,
		Removed:          d.Removed,
		Total:            d.Total,
		DetectedAt:       time.Now(),
	}
	obs.Notify = !d.Empty()
	return nil
}

// Commit replaces the stored set, then renders the report of a notified
// change. No report is written for a set the store did not record.
func (l *SetLedger) Commit(obs *model.Observation) error {
	snap, err := setSnapshot(obs)
	if err != nil {
		return err
	}
	if err := l.store.Replace(obs.Target, snap); err != nil {
		return err
	}

	event := obs.Event
	if !obs.Notify || l.renderer == nil || event == nil {
		return nil
	}
	d := diff.SetDiff{Added: event.Added, Removed: event.Removed, Total: event.Total}
	artifact, err := l.renderer.RenderSet(obs.Target, snap, d)
	if err != nil {
		l.logger.Warn("failed to render report", "target", obs.Target, "error", err)
		return nil
	}
	event.Artifact = artifact
	return nil
}
