package records

import "testing"

func TestHubFiltersByHousehold(t *testing.T) {
	h := NewHub()
	rossi, cancelRossi := h.Subscribe("rossi")
	all, cancelAll := h.Subscribe("")

	h.Publish(Change{Household: "bianchi", Collection: Cards})
	h.Publish(Change{Household: "rossi", Collection: Services})

	if len(rossi) != 1 {
		t.Fatalf("rossi got %d", len(rossi))
	}
	if c := <-rossi; c.Collection != Services {
		t.Fatalf("change %+v", c)
	}
	if len(all) != 2 {
		t.Fatalf("wildcard got %d", len(all))
	}

	cancelRossi()
	cancelRossi()
	if _, ok := <-rossi; ok {
		t.Fatal("channel still open after cancel")
	}
	if h.Len() != 1 {
		t.Fatalf("subscriptions %d", h.Len())
	}
	cancelAll()
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("rossi")
	defer cancel()
	for i := 0; i < subscriberBuffer*2; i++ {
		h.Publish(Change{Household: "rossi", Collection: Purchases})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered %d", len(ch))
	}
}
