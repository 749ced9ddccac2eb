package agent

import (
	"bytes"
	"errors"
	"testing"
)

type fakeKey struct {
	typ, comment string
	blob         []byte
}

func (k fakeKey) Type() string    { return k.typ }
func (k fakeKey) Comment() string { return k.comment }
func (k fakeKey) Blob() []byte    { return k.blob }

type fakeParser struct{}

func (fakeParser) Parse(blob []byte) (ParsedKey, error) {
	return fakeKey{typ: "ssh-ed25519", blob: append([]byte(nil), blob...)}, nil
}

func newClientHarness() (*Engine, *[][]byte) {
	var sent [][]byte
	e := NewClientEngine(func(b []byte) error {
		sent = append(sent, b)
		return nil
	}, fakeParser{})
	return e, &sent
}

func encodeString(s []byte) []byte {
	buf := make([]byte, 4+len(s))
	buf[0] = byte(len(s) >> 24)
	buf[1] = byte(len(s) >> 16)
	buf[2] = byte(len(s) >> 8)
	buf[3] = byte(len(s))
	copy(buf[4:], s)
	return buf
}

func TestClientGetIdentitiesSendsRequest(t *testing.T) {
	e, sent := newClientHarness()
	if err := e.GetIdentities(func([]ParsedKey, error) {}); err != nil {
		t.Fatalf("GetIdentities: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("got %d sent frames, wanted 1", len(*sent))
	}
	if !bytes.Equal((*sent)[0], h("000000010b")) {
		t.Errorf("got %x, wanted REQUEST_IDENTITIES frame", (*sent)[0])
	}
}

func TestClientIdentitiesAnswerRoundTrip(t *testing.T) {
	e, _ := newClientHarness()
	var got []ParsedKey
	var gotErr error
	if err := e.GetIdentities(func(keys []ParsedKey, err error) {
		got, gotErr = keys, err
	}); err != nil {
		t.Fatal(err)
	}

	blob := []byte("keyblob")
	body := append(h("00000001"), encodeString(blob)...)
	body = append(body, encodeString([]byte("comment"))...)
	if err := e.Ingest(EncodeFrame(IdentitiesAnswer, body)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if gotErr != nil {
		t.Fatalf("callback error: %v", gotErr)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Blob(), blob) || got[0].Comment() != "comment" {
		t.Errorf("got %+v", got)
	}
}

// rejectingParser accepts every blob except those in reject, used to test
// that unparseable identities are skipped rather than failing the decode.
type rejectingParser struct {
	reject map[string]bool
}

func (p rejectingParser) Parse(blob []byte) (ParsedKey, error) {
	if p.reject[string(blob)] {
		return nil, errors.New("unsupported key type")
	}
	return fakeKey{typ: "ssh-ed25519", blob: append([]byte(nil), blob...)}, nil
}

func TestClientIdentitiesAnswerSkipsRejectedKeys(t *testing.T) {
	var sent [][]byte
	e := NewClientEngine(func(b []byte) error {
		sent = append(sent, b)
		return nil
	}, rejectingParser{reject: map[string]bool{"bad": true}})

	var got []ParsedKey
	if err := e.GetIdentities(func(keys []ParsedKey, err error) {
		got = keys
		if err != nil {
			t.Fatalf("callback error: %v", err)
		}
	}); err != nil {
		t.Fatal(err)
	}

	body := append(h("00000002"), encodeString([]byte("good"))...)
	body = append(body, encodeString([]byte("c1"))...)
	body = append(body, encodeString([]byte("bad"))...)
	body = append(body, encodeString([]byte("c2"))...)
	if err := e.Ingest(EncodeFrame(IdentitiesAnswer, body)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Blob(), []byte("good")) {
		t.Errorf("got %+v, wanted just the accepted key", got)
	}
}

func TestClientFailureIsNotFatal(t *testing.T) {
	e, _ := newClientHarness()
	var gotErr error
	if err := e.GetIdentities(func(keys []ParsedKey, err error) { gotErr = err }); err != nil {
		t.Fatal(err)
	}
	if err := e.Ingest(EncodeFrame(Failure, nil)); err != nil {
		t.Fatalf("Ingest should not fail the engine on FAILURE: %v", err)
	}
	if !errors.Is(gotErr, ErrAgentFailure) {
		t.Errorf("got %v, wanted ErrAgentFailure", gotErr)
	}

	// The engine is still usable for further requests.
	var gotErr2 error
	if err := e.GetIdentities(func(keys []ParsedKey, err error) { gotErr2 = err }); err != nil {
		t.Fatal(err)
	}
	if err := e.Ingest(EncodeFrame(IdentitiesAnswer, []byte{0, 0, 0, 0})); err != nil {
		t.Fatalf("Ingest after recovering from FAILURE: %v", err)
	}
	if gotErr2 != nil {
		t.Errorf("second request failed unexpectedly: %v", gotErr2)
	}
}

func TestClientFIFOOrdering(t *testing.T) {
	e, _ := newClientHarness()
	var order []string
	if err := e.GetIdentities(func([]ParsedKey, error) { order = append(order, "identities") }); err != nil {
		t.Fatal(err)
	}
	if err := e.Sign(fakeKey{typ: "ssh-ed25519"}, []byte("msg"), nil, func([]byte, error) { order = append(order, "sign") }); err != nil {
		t.Fatal(err)
	}

	emptyIdentities := []byte{0, 0, 0, 0}
	sig := encodeString(append(encodeString([]byte("ssh-ed25519")), encodeString([]byte("sigbytes"))...))

	wire := append([]byte{}, EncodeFrame(IdentitiesAnswer, emptyIdentities)...)
	wire = append(wire, EncodeFrame(SignResponse, sig)...)
	if err := e.Ingest(wire); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(order) != 2 || order[0] != "identities" || order[1] != "sign" {
		t.Errorf("got order %v, wanted [identities sign]", order)
	}
}

func TestClientWrongMessageTypeIsFatal(t *testing.T) {
	e, _ := newClientHarness()
	var gotErr error
	if err := e.GetIdentities(func(keys []ParsedKey, err error) { gotErr = err }); err != nil {
		t.Fatal(err)
	}
	if err := e.Ingest(EncodeFrame(SignResponse, encodeString([]byte("x")))); err == nil {
		t.Fatal("expected Ingest to fail the engine")
	}
	if !errors.Is(gotErr, ErrWrongMessageType) {
		t.Errorf("got %v, wanted ErrWrongMessageType", gotErr)
	}

	// The engine is now permanently failed.
	if err := e.GetIdentities(func(keys []ParsedKey, err error) {}); err == nil {
		t.Fatal("expected GetIdentities to fail once the engine has failed")
	} else if !errors.Is(err, ErrWrongMessageType) {
		t.Errorf("got %v", err)
	}
}

func TestClientSignResponseStripsAlgorithm(t *testing.T) {
	e, _ := newClientHarness()
	var got []byte
	if err := e.Sign(fakeKey{typ: "ssh-rsa"}, []byte("msg"), nil, func(sig []byte, err error) {
		if err != nil {
			t.Fatalf("callback error: %v", err)
		}
		got = sig
	}); err != nil {
		t.Fatal(err)
	}

	inner := append(encodeString([]byte("rsa-sha2-256")), encodeString([]byte{0xAA, 0xBB})...)
	if err := e.Ingest(EncodeFrame(SignResponse, encodeString(inner))); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !bytes.Equal(got, []byte{0xAA, 0xBB}) {
		t.Errorf("got %x, wanted just the sig_blob AA BB", got)
	}
}

func TestClientUnexpectedReplyIsFatal(t *testing.T) {
	e, _ := newClientHarness()
	if err := e.Ingest(EncodeFrame(IdentitiesAnswer, []byte{0, 0, 0, 0})); err == nil {
		t.Fatal("expected error for reply with no outstanding request")
	} else if !errors.Is(err, ErrUnexpectedMessage) {
		t.Errorf("got %v, wanted ErrUnexpectedMessage", err)
	}
}
