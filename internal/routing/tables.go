package routing

import (
	"fmt"
	"sort"

	"github.com/notifyhub/tenantq/internal/domain"
)

// Event types routed through the queue engine. The set is closed and
// versioned with the deployment; unmapped names are a configuration bug,
// not a retryable condition.
const (
	EventNotificationInitialized       = "NotificationInitialized"
	EventEmailTemplateShouldPopulate   = "EmailTemplateShouldBePopulated"
	EventEmailTemplateHasBeenPopulated = "EmailTemplateHasBeenPopulated"
)

// Consumer channel tags. Each polling consumer identifies itself with one of
// these opaque tags, which selects the queue it reads from.
const (
	ChannelNotificationDispatcher = "notification-dispatcher"
	ChannelTemplatePopulator      = "template-populator"
	ChannelEmailSender            = "email-sender"
)

// Queue table names, materialized in every tenant database under the
// "queues" schema during onboarding.
const (
	QueueUnprocessedNotifications = "unprocessed_notifications"
	QueueEmailsToBePopulated      = "emails_to_be_merged_into_template"
	QueueEmailsToBeSent           = "emails_to_be_sent"
)

// Tables maps event types to destination queues and consumer channels to
// source queues. Built once at process start, immutable afterwards.
type Tables struct {
	events   map[string]string
	channels map[string]string
	queues   []string
}

// New builds routing tables from explicit mappings. The queue set is the
// union of all destination and source queues, deduplicated and sorted.
func New(events, channels map[string]string) *Tables {
	seen := make(map[string]struct{})
	for _, q := range events {
		seen[q] = struct{}{}
	}
	for _, q := range channels {
		seen[q] = struct{}{}
	}

	queues := make([]string, 0, len(seen))
	for q := range seen {
		queues = append(queues, q)
	}
	sort.Strings(queues)

	ev := make(map[string]string, len(events))
	for k, v := range events {
		ev[k] = v
	}
	ch := make(map[string]string, len(channels))
	for k, v := range channels {
		ch[k] = v
	}

	return &Tables{events: ev, channels: ch, queues: queues}
}

// Default returns the routing tables for the notification pipeline:
// activity occurred -> email template populated -> email sent.
func Default() *Tables {
	return New(
		map[string]string{
			EventNotificationInitialized:       QueueUnprocessedNotifications,
			EventEmailTemplateShouldPopulate:   QueueEmailsToBePopulated,
			EventEmailTemplateHasBeenPopulated: QueueEmailsToBeSent,
		},
		map[string]string{
			ChannelNotificationDispatcher: QueueUnprocessedNotifications,
			ChannelTemplatePopulator:      QueueEmailsToBePopulated,
			ChannelEmailSender:            QueueEmailsToBeSent,
		},
	)
}

// ResolveDestinationQueue returns the queue an event type is written to.
func (t *Tables) ResolveDestinationQueue(eventType string) (string, error) {
	q, ok := t.events[eventType]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownEventType, eventType)
	}
	return q, nil
}

// ResolveSourceQueue returns the queue a consumer channel reads from.
func (t *Tables) ResolveSourceQueue(channel string) (string, error) {
	q, ok := t.channels[channel]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownConsumerChannel, channel)
	}
	return q, nil
}

// Queues returns the declared queue set in stable order. Tenant onboarding
// materializes one table per entry.
func (t *Tables) Queues() []string {
	out := make([]string, len(t.queues))
	copy(out, t.queues)
	return out
}
