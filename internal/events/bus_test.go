package events

import "testing"

func TestPublishReachesTopicAndWildcard(t *testing.T) {
	b := NewBus()
	topic, unsubTopic := b.Subscribe(EventBlockCreated, 4)
	all, unsubAll := b.Subscribe(EventAll, 4)
	defer unsubTopic()
	defer unsubAll()

	b.Publish(EventBlockCreated, "a")
	b.Publish(EventBlockRemoved, "b")

	if got := <-topic; got != "a" {
		t.Fatalf("topic got %v", got)
	}
	if len(topic) != 0 {
		t.Fatalf("topic received unrelated event")
	}
	if first, second := <-all, <-all; first != "a" || second != "b" {
		t.Fatalf("wildcard got %v, %v", first, second)
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventStrategyCleared, 1)
	defer unsub()

	b.Publish(EventStrategyCleared, 1)
	b.Publish(EventStrategyCleared, 2)
	if got := <-ch; got != 1 {
		t.Fatalf("got %v", got)
	}
	if len(ch) != 0 {
		t.Fatalf("overflow was buffered")
	}
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventAll, 1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open")
	}
	if b.Subscribers(EventAll) != 0 {
		t.Fatalf("subscriber not removed")
	}
	b.Publish(EventBlockCreated, "x")
}
