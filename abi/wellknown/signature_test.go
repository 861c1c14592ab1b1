package wellknown

import "testing"

func TestEncodeThruSignatureAllZeroBytes(t *testing.T) {
	b := make([]byte, 64)
	sig, ok := EncodeThruSignature(b)
	if !ok {
		t.Fatal("EncodeThruSignature: got ok=false, want true for a 64-byte signature")
	}
	want := "ts" + stringOfA(88)
	if sig != want {
		t.Errorf("EncodeThruSignature(zero): got %q, want %q", sig, want)
	}
}

func stringOfA(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'A'
	}
	return string(b)
}

func TestEncodeThruSignatureRejectsWrongLength(t *testing.T) {
	if _, ok := EncodeThruSignature(make([]byte, 63)); ok {
		t.Error("EncodeThruSignature(63 bytes): got ok=true, want false")
	}
}

func TestSignatureHandlerMatchesSyntheticBytesField(t *testing.T) {
	b := make([]byte, 64)
	for i := range b {
		b[i] = byte(i)
	}
	h := signatureHandler{}
	res := h.Process(map[string]FieldValue{"$bytes": {Bytes: b, IsBytes: true}})
	if !res.Matched {
		t.Fatal("signatureHandler.Process: got Matched=false, want true")
	}
	sig, ok := res.Enrichment["signature"].(string)
	if !ok || len(sig) != 90 || sig[:2] != "ts" {
		t.Errorf("signatureHandler enrichment[signature]: got %v", res.Enrichment["signature"])
	}
}
