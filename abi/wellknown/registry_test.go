package wellknown

import "testing"

func TestWithDefaultsRegistersPubkeyAndSignature(t *testing.T) {
	r := WithDefaults()
	types := make(map[string]bool)
	for _, name := range r.RegisteredTypes() {
		types[name] = true
	}
	for _, want := range []string{"Pubkey", "Signature", "Timestamp", "Duration"} {
		if !types[want] {
			t.Errorf("WithDefaults: missing handler for %q", want)
		}
	}
}

func TestRegistryProcessUnknownTypeIsNoMatch(t *testing.T) {
	r := WithDefaults()
	res := r.Process("NotAWellKnownType", map[string]FieldValue{})
	if res.Matched {
		t.Error("Process(unknown type): got Matched=true, want false")
	}
}
