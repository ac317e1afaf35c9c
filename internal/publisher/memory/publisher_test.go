package memory

import (
	"context"
	"testing"
)

func TestPublisherStoresPayloads(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), map[string]string{"k": "v"})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "payload")
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	payloads := pub.Payloads()
	if len(payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(payloads))
	}

	payloads[1] = "modified"
	if pub.Payloads()[1] == "modified" {
		t.Fatal("expected Payloads() to return a copy")
	}
}
