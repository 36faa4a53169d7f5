package events

import (
	"context"
	"testing"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
)

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	if err := n.Publish(context.Background(), JobEvent{JobID: "j", Status: "QUEUED"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewRedisNotifierValidates(t *testing.T) {
	if _, err := NewRedisNotifier("localhost:6379", "", nil); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewRedisNotifier("  ", "", logger.Nop()); err == nil {
		t.Fatalf("expected error without address")
	}
}

func TestUninitializedNotifier(t *testing.T) {
	var n *redisNotifier
	if err := n.Publish(context.Background(), JobEvent{}); err == nil {
		t.Fatalf("expected error from nil notifier")
	}
	if err := n.Close(); err != nil {
		t.Fatalf("close on nil notifier: %v", err)
	}
}
