package amqp

import "testing"

func TestLedgerEventValidate(t *testing.T) {
	cases := []struct {
		name string
		msg  LedgerEventMessage
		ok   bool
	}{
		{"created", LedgerEventMessage{Kind: "grocery", Action: ActionCreated, ID: "g1"}, true},
		{"deleted", LedgerEventMessage{Kind: "deposit", Action: ActionDeleted, ID: "d1"}, true},
		{"no id", LedgerEventMessage{Kind: "grocery", Action: ActionCreated}, false},
		{"bad action", LedgerEventMessage{Kind: "grocery", Action: "upserted", ID: "g1"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLedgerEventRoundTrip(t *testing.T) {
	msg := NewLedgerEvent("grocery", ActionCreated, "g42")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != msg.Kind || got.Action != msg.Action || got.ID != msg.ID {
		t.Fatalf("round-trip mismatch: %+v vs %+v", got, msg)
	}

	if _, err := LedgerEventFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
