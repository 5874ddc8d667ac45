package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/ratelimit"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier prints notices and optionally mirrors them to the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the platform. desktop=false prints only.
func NewNotifier(desktop bool) *Notifier {
	if !desktop {
		return &Notifier{}
	}

	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender uses an explicit sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// RateLimited prints the rate limit notice. It satisfies ratelimit.Notifier.
func (n *Notifier) RateLimited(err *apperrors.RateLimitError) {
	notice := RateLimitNotice(err)
	printf(true, "\n%s\n", Yellow(notice))

	if n.sender != nil {
		_ = n.sender.Send("Stargazers", "GitHub rate limit reached")
	}
}

// RateLimitNotice describes when the limit resets and, for anonymous runs,
// how to raise it
func RateLimitNotice(err *apperrors.RateLimitError) string {
	msg := "Rate limit reached"
	if !err.ResetAt.IsZero() {
		msg += fmt.Sprintf(", resets %s (%s)", humanize.Time(err.ResetAt), err.ResetAt.Local().Format(time.Kitchen))
	}
	if !err.Authenticated {
		msg += "\n" + ratelimit.TokenAdvice
	}
	return msg
}
