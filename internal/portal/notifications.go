package portal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

// NotificationsAPI is the backend surface of the notifications menu.
type NotificationsAPI interface {
	ListNotifications(ctx context.Context) ([]backend.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// NotificationItem is a notification decorated for the menu.
type NotificationItem struct {
	backend.Notification
	Icon         string `json:"icon"`
	IconColor    string `json:"icon_color"`
	RelativeTime string `json:"relative_time"`
}

// NotificationsView is the notifications menu.
type NotificationsView struct {
	Items  []NotificationItem `json:"items"`
	Unread int                `json:"unread"`
}

// Notifications serves the notifications menu.
type Notifications struct {
	opts Options
}

func NewNotifications(opts Options) *Notifications {
	return &Notifications{opts: opts.withDefaults()}
}

// Load fetches the list and the unread count concurrently.
func (n *Notifications) Load(ctx context.Context, api NotificationsAPI) (*NotificationsView, error) {
	var (
		list   []backend.Notification
		unread int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = api.ListNotifications(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = api.UnreadCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("portal: load notifications: %w", err)
	}

	now := n.opts.now()
	view := &NotificationsView{Items: make([]NotificationItem, 0, len(list)), Unread: unread}
	for _, item := range list {
		icon, color := NotificationIcon(item.Type)
		rel := ""
		if created, ok := parseTimestamp(item.CreatedAt, n.opts.Location); ok {
			rel = RelativeTime(created, now)
		}
		view.Items = append(view.Items, NotificationItem{
			Notification: item,
			Icon:         icon,
			IconColor:    color,
			RelativeTime: rel,
		})
	}
	return view, nil
}

// Open marks a notification read when it is unread and returns its link.
func (n *Notifications) Open(ctx context.Context, api NotificationsAPI, id int64) (string, error) {
	list, err := api.ListNotifications(ctx)
	if err != nil {
		return "", fmt.Errorf("portal: open notification %d: %w", id, err)
	}
	for _, item := range list {
		if item.ID != id {
			continue
		}
		if !item.IsRead {
			if err := api.MarkNotificationRead(ctx, id); err != nil {
				return "", fmt.Errorf("portal: mark notification %d read: %w", id, err)
			}
		}
		return item.Link, nil
	}
	return "", fmt.Errorf("notification %d: %w", id, ErrNotFound)
}

// MarkAllRead marks every notification read and reloads the menu.
func (n *Notifications) MarkAllRead(ctx context.Context, api NotificationsAPI) (*NotificationsView, error) {
	if err := api.MarkAllRead(ctx); err != nil {
		return nil, fmt.Errorf("portal: mark all notifications read: %w", err)
	}
	return n.Load(ctx, api)
}

// NotificationIcon maps a notification type to an icon key and colour.
func NotificationIcon(t backend.NotificationType) (string, string) {
	switch t {
	case backend.NotificationAppointment:
		return "event", "primary"
	case backend.NotificationPrescription:
		return "local_pharmacy", "success"
	case backend.NotificationLabResult:
		return "science", "error"
	}
	return "info", "info"
}

// RelativeTime renders t relative to now in German, e.g. "vor 5 Minuten".
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		return "in Kürze"
	}
	switch {
	case d < time.Minute:
		return "gerade eben"
	case d < time.Hour:
		m := int(d / time.Minute)
		return fmt.Sprintf("vor %d %s", m, plural(m, "Minute", "Minuten"))
	case d < 24*time.Hour:
		h := int(d / time.Hour)
		return fmt.Sprintf("vor %d %s", h, plural(h, "Stunde", "Stunden"))
	case d < 30*24*time.Hour:
		days := int(d / (24 * time.Hour))
		return fmt.Sprintf("vor %d %s", days, plural(days, "Tag", "Tagen"))
	case d < 365*24*time.Hour:
		months := int(d / (30 * 24 * time.Hour))
		return fmt.Sprintf("vor %d %s", months, plural(months, "Monat", "Monaten"))
	}
	years := int(d / (365 * 24 * time.Hour))
	return fmt.Sprintf("vor %d %s", years, plural(years, "Jahr", "Jahren"))
}
