package events

import "testing"

func TestTopicFor(t *testing.T) {
	t.Parallel()
	topics := map[string]string{"gtfs.feed_updated": "freecity.gtfs.feed", "gtfs.other": " "}
	cases := map[string]string{
		"gtfs.feed_updated": "freecity.gtfs.feed",
		"gtfs.other":        "gtfs.other",
		"gtfs.unmapped":     "gtfs.unmapped",
	}
	for eventType, want := range cases {
		if got := topicFor(topics, eventType); got != want {
			t.Fatalf("topicFor(%q) = %q, want %q", eventType, got, want)
		}
	}
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	t.Parallel()
	if _, err := NewKafkaPublisher(nil, nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
