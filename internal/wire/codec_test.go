package wire

import (
	"bytes"
	"testing"
)

func TestChatRoundTrip(t *testing.T) {
	c := Chat{Text: "hello", VerificationCode: [16]byte{1, 2, 3}, Hash: [16]byte{0, 0, 9}}
	b, err := EncodeChat(c)
	if err != nil {
		t.Fatalf("EncodeChat: %v", err)
	}
	if len(b) != 33+len(c.Text) {
		t.Fatalf("size = %d, want %d", len(b), 33+len(c.Text))
	}
	got, err := DecodeChat(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("DecodeChat: %v", err)
	}
	if !got.Equal(c) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestChatTextTooLong(t *testing.T) {
	c := Chat{Text: string(make([]byte, 256))}
	if _, err := EncodeChat(c); err != ErrTextTooLong {
		t.Fatalf("err = %v, want ErrTextTooLong", err)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	cases := []Message{
		PeerRequest{},
		ArchiveRequest{},
		PeerList{IPs: []string{"10.0.0.1", "192.168.1.5"}},
		ArchiveResponse{History: []Chat{
			{Text: "a", VerificationCode: [16]byte{1}, Hash: [16]byte{0, 0, 1}},
			{Text: "b", VerificationCode: [16]byte{2}, Hash: [16]byte{0, 0, 2}},
		}},
		NotificationMessage{Text: "hi there"},
	}
	for _, m := range cases {
		b, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode(%T): %v", m, err)
		}
		got, err := Decode(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("Decode(%T): %v", m, err)
		}
		assertMessageEqual(t, m, got)
	}
}

func assertMessageEqual(t *testing.T, want, got Message) {
	t.Helper()
	switch w := want.(type) {
	case PeerRequest:
		if _, ok := got.(PeerRequest); !ok {
			t.Fatalf("got %T, want PeerRequest", got)
		}
	case ArchiveRequest:
		if _, ok := got.(ArchiveRequest); !ok {
			t.Fatalf("got %T, want ArchiveRequest", got)
		}
	case PeerList:
		g, ok := got.(PeerList)
		if !ok || len(g.IPs) != len(w.IPs) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
		for i := range w.IPs {
			if g.IPs[i] != w.IPs[i] {
				t.Fatalf("ip[%d] = %q, want %q", i, g.IPs[i], w.IPs[i])
			}
		}
	case ArchiveResponse:
		g, ok := got.(ArchiveResponse)
		if !ok || len(g.History) != len(w.History) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
		for i := range w.History {
			if !g.History[i].Equal(w.History[i]) {
				t.Fatalf("chat[%d] = %+v, want %+v", i, g.History[i], w.History[i])
			}
		}
	case NotificationMessage:
		g, ok := got.(NotificationMessage)
		if !ok || g.Text != w.Text {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}

func TestPeerListSkipsMalformedIPs(t *testing.T) {
	b, err := Encode(PeerList{IPs: []string{"10.0.0.1", "not-an-ip", "::1", "10.0.0.2"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	pl := got.(PeerList)
	if len(pl.IPs) != 2 {
		t.Fatalf("got %d ips, want 2 (count must match filtered payload)", len(pl.IPs))
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xFF}))
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestDecodeShortRead(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{TagPeerList, 0x00}))
	if err == nil {
		t.Fatal("expected error for short read")
	}
}
