package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/changemon/internal/model"
)

// ErrNotify matches every delivery failure.
var ErrNotify = errors.New("notification failed")

// Notifier delivers a change event.
type Notifier interface {
	Notify(ctx context.Context, event *model.ChangeEvent) error
}

// Identity is the sender name and avatar shown by the receiver.
type Identity struct {
	Username  string
	AvatarURL string
}

// DefaultIdentity returns the sender identity used for kind.
func DefaultIdentity(kind model.Kind) Identity {
	if kind == model.KindSet {
		return Identity{Username: "SubMon", AvatarURL: "https://cdn.discordapp.com/embed/avatars/2.png"}
	}
	return Identity{Username: "JSMon", AvatarURL: "https://cdn.discordapp.com/embed/avatars/3.png"}
}

// Message renders the text of a notification.
func Message(event *model.ChangeEvent) string {
	var b strings.Builder
	switch event.Kind {
	case model.KindSet:
		fmt.Fprintf(&b, "🔔 New subdomains of `%s` detected\n\n", event.Target)
		fmt.Fprintf(&b, "New subdomains: `%d`\n", len(event.Added))
		if len(event.Removed) > 0 {
			fmt.Fprintf(&b, "Removed subdomains: `%d`\n", len(event.Removed))
		}
		fmt.Fprintf(&b, "Total subdomains: `%d`\n", event.Total)
	default:
		fmt.Fprintf(&b, "🔔 Endpoint `%s` has been updated!\n", event.Target)
		fmt.Fprintf(&b, "Previous hash: `%s` (%d bytes)\n", event.Previous, event.PreviousSize)
		fmt.Fprintf(&b, "New hash: `%s` (%d bytes)", event.Current, event.CurrentSize)
		if event.LinesAdded > 0 || event.LinesRemoved > 0 {
			fmt.Fprintf(&b, "\nLines: +%d / -%d", event.LinesAdded, event.LinesRemoved)
		}
	}
	return truncate(b.String(), maxContentLength)
}

// maxContentLength is the message size limit of Discord webhooks.
const maxContentLength = 2000

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
