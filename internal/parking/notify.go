package parking

import (
	"fmt"
	"io"
	"strings"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notifier interface {
	Notify(severity Severity, title, message string)
}

type Notification struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// NotificationBuffer collects notifications for shells that report them
// after the action completes.
type NotificationBuffer struct {
	notifications []Notification
}

func (b *NotificationBuffer) Notify(severity Severity, title, message string) {
	b.notifications = append(b.notifications, Notification{
		Severity: severity,
		Title:    title,
		Message:  message,
	})
}

func (b *NotificationBuffer) Notifications() []Notification {
	return b.notifications
}

func (b *NotificationBuffer) Last() (Notification, bool) {
	if len(b.notifications) == 0 {
		return Notification{}, false
	}
	return b.notifications[len(b.notifications)-1], true
}

type ConsoleNotifier struct {
	out io.Writer
}

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) Notify(severity Severity, title, message string) {
	fmt.Fprintf(n.out, "[%s] %s: %s\n", strings.ToUpper(string(severity)), title, message)
}
