package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/buildmart-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		project string
		name    string
		want    string
	}{
		{project: "bm-prod", name: "buildmart-domain-events", want: "projects/bm-prod/topics/buildmart-domain-events"},
		{project: "bm-prod", name: " projects/other/topics/x ", want: "projects/other/topics/x"},
		{project: "", name: "topic", want: ""},
		{project: "bm-prod", name: "  ", want: ""},
	}
	for _, tc := range tests {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesDeduplicates(t *testing.T) {
	names := topicNames(config.PubSubConfig{DomainTopic: "events", SettlementTopic: "events"})
	if len(names) != 1 {
		t.Fatalf("expected one topic, got %v", names)
	}
	if len(topicNames(config.PubSubConfig{})) != 0 {
		t.Fatal("expected no topics for empty config")
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("events") != nil {
		t.Fatal("nil client should not return a publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error pinging nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "x"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}
