package udp

import "testing"

// TestDecodeJoin tests a well-formed join datagram
func TestDecodeJoin(t *testing.T) {
	data := []byte(`{"type":"join","lobby_code":"ABC","player_id":7,"player_name":"Tester"}`)

	in, err := Decode(data, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if in.Type != TypeJoin {
		t.Errorf("Expected type join, got %q", in.Type)
	}
	if in.LobbyCode != "ABC" || in.PlayerID != 7 || in.PlayerName != "Tester" {
		t.Errorf("fields wrong: %+v", in)
	}
}

// TestDecodePosition tests the nested position and rotation objects
func TestDecodePosition(t *testing.T) {
	data := []byte(`{"type":"position_update","player_id":1,` +
		`"position":{"x":1.5,"y":2,"z":-3},"rotation":{"x":0,"y":90,"z":0}}`)

	in, err := Decode(data, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if in.Position == nil || in.Position.X != 1.5 || in.Position.Z != -3 {
		t.Errorf("position wrong: %+v", in.Position)
	}
	if in.Rotation == nil || in.Rotation.Y != 90 {
		t.Errorf("rotation wrong: %+v", in.Rotation)
	}
}

// TestDecodeMalformed tests that junk is rejected
func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{not json`), 1024); err == nil {
		t.Error("malformed JSON should fail")
	}
}

// TestDecodeMissingType tests the discriminator requirement
func TestDecodeMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"player_id":1}`), 1024); err == nil {
		t.Error("packet without type should fail")
	}
}

// TestDecodeOversized tests the size cap
func TestDecodeOversized(t *testing.T) {
	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'a'
	}
	if _, err := Decode(big, 1024); err == nil {
		t.Error("oversized packet should fail")
	}
}
