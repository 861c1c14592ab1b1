package wellknown

import "testing"

func TestEncodeThruAddress(t *testing.T) {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i)
	}
	addr, ok := EncodeThruAddress(b)
	if !ok {
		t.Fatal("EncodeThruAddress: got ok=false, want true for a 32-byte key")
	}
	if len(addr) != 46 {
		t.Fatalf("EncodeThruAddress length: got %d, want 46", len(addr))
	}
	if addr[:2] != "ta" {
		t.Errorf("EncodeThruAddress prefix: got %q, want \"ta\"", addr[:2])
	}
}

func TestEncodeThruAddressRejectsWrongLength(t *testing.T) {
	if _, ok := EncodeThruAddress(make([]byte, 31)); ok {
		t.Error("EncodeThruAddress(31 bytes): got ok=true, want false")
	}
	if _, ok := EncodeThruAddress(make([]byte, 33)); ok {
		t.Error("EncodeThruAddress(33 bytes): got ok=true, want false")
	}
}

func TestPubkeyHandlerMatchesSyntheticBytesField(t *testing.T) {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i * 7)
	}
	h := pubkeyHandler{}
	res := h.Process(map[string]FieldValue{"$bytes": {Bytes: b, IsBytes: true}})
	if !res.Matched {
		t.Fatal("pubkeyHandler.Process: got Matched=false, want true")
	}
	addr, ok := res.Enrichment["address"].(string)
	if !ok || len(addr) != 46 || addr[:2] != "ta" {
		t.Errorf("pubkeyHandler enrichment[address]: got %v", res.Enrichment["address"])
	}
}

func TestPubkeyHandlerDeclinesWrongLength(t *testing.T) {
	h := pubkeyHandler{}
	res := h.Process(map[string]FieldValue{"$bytes": {Bytes: make([]byte, 16), IsBytes: true}})
	if res.Matched {
		t.Error("pubkeyHandler.Process(16 bytes): got Matched=true, want false")
	}
}
