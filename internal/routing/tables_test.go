package routing_test

import (
	"errors"
	"testing"

	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/routing"
)

func TestTables_ResolveDestinationQueue(t *testing.T) {
	tables := routing.Default()

	tests := []struct {
		eventType string
		queue     string
	}{
		{routing.EventNotificationInitialized, routing.QueueUnprocessedNotifications},
		{routing.EventEmailTemplateShouldPopulate, routing.QueueEmailsToBePopulated},
		{routing.EventEmailTemplateHasBeenPopulated, routing.QueueEmailsToBeSent},
	}

	for _, tc := range tests {
		q, err := tables.ResolveDestinationQueue(tc.eventType)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.eventType, err)
		}
		if q != tc.queue {
			t.Fatalf("%s: expected queue %q, got %q", tc.eventType, tc.queue, q)
		}
	}
}

func TestTables_ResolveDestinationQueue_Unknown(t *testing.T) {
	_, err := routing.Default().ResolveDestinationQueue("SomethingElseHappened")
	if !errors.Is(err, domain.ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestTables_ResolveSourceQueue(t *testing.T) {
	tables := routing.Default()

	q, err := tables.ResolveSourceQueue(routing.ChannelEmailSender)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != routing.QueueEmailsToBeSent {
		t.Fatalf("expected %q, got %q", routing.QueueEmailsToBeSent, q)
	}
}

func TestTables_ResolveSourceQueue_Unknown(t *testing.T) {
	_, err := routing.Default().ResolveSourceQueue("http://localhost:5089")
	if !errors.Is(err, domain.ErrUnknownConsumerChannel) {
		t.Fatalf("expected ErrUnknownConsumerChannel, got %v", err)
	}
}

func TestTables_Queues(t *testing.T) {
	queues := routing.Default().Queues()
	if len(queues) != 3 {
		t.Fatalf("expected 3 declared queues, got %d: %v", len(queues), queues)
	}

	// Every destination and source must resolve to a declared queue.
	declared := make(map[string]bool, len(queues))
	for _, q := range queues {
		declared[q] = true
	}
	for _, ev := range []string{
		routing.EventNotificationInitialized,
		routing.EventEmailTemplateShouldPopulate,
		routing.EventEmailTemplateHasBeenPopulated,
	} {
		q, _ := routing.Default().ResolveDestinationQueue(ev)
		if !declared[q] {
			t.Fatalf("event %s routes to undeclared queue %q", ev, q)
		}
	}
}

func TestTables_QueuesDeduplicated(t *testing.T) {
	tables := routing.New(
		map[string]string{"A": "q1", "B": "q1"},
		map[string]string{"c1": "q1", "c2": "q2"},
	)
	queues := tables.Queues()
	if len(queues) != 2 {
		t.Fatalf("expected 2 unique queues, got %v", queues)
	}
}
