package game

import "testing"

func drainForTest(ch chan Command) ([]Command, bool, int) {
	return drainCommands(ch, nil, make(map[uint32]int))
}

// TestDrainCoalescesPositions tests that only the latest position per player
// survives the drain, in that player's original slot.
func TestDrainCoalescesPositions(t *testing.T) {
	ch := make(chan Command, 16)
	ch <- Command{Kind: CmdPositionUpdate, PlayerID: 1, Position: Vec3{X: 1}}
	ch <- Command{Kind: CmdShoot, PlayerID: 1, TargetID: 2}
	ch <- Command{Kind: CmdPositionUpdate, PlayerID: 1, Position: Vec3{X: 2}}
	ch <- Command{Kind: CmdPositionUpdate, PlayerID: 1, Position: Vec3{X: 3}}

	commands, open, coalesced := drainForTest(ch)
	if !open {
		t.Fatal("channel should still be open")
	}
	if coalesced != 2 {
		t.Errorf("Expected 2 discarded updates, got %d", coalesced)
	}
	if len(commands) != 2 {
		t.Fatalf("Expected 2 surviving commands, got %d", len(commands))
	}

	// The surviving position sits before the shoot and carries the final payload.
	if commands[0].Kind != CmdPositionUpdate || commands[0].Position.X != 3 {
		t.Errorf("Expected coalesced position x=3 first, got %+v", commands[0])
	}
	if commands[1].Kind != CmdShoot {
		t.Errorf("Expected shoot second, got %+v", commands[1])
	}
}

// TestDrainCoalescesPerPlayer tests that coalescing is independent per player
func TestDrainCoalescesPerPlayer(t *testing.T) {
	ch := make(chan Command, 16)
	ch <- Command{Kind: CmdPositionUpdate, PlayerID: 1, Position: Vec3{X: 1}}
	ch <- Command{Kind: CmdPositionUpdate, PlayerID: 2, Position: Vec3{X: 10}}
	ch <- Command{Kind: CmdPositionUpdate, PlayerID: 1, Position: Vec3{X: 2}}
	ch <- Command{Kind: CmdPositionUpdate, PlayerID: 2, Position: Vec3{X: 20}}

	commands, _, _ := drainForTest(ch)
	if len(commands) != 2 {
		t.Fatalf("Expected 2 commands, got %d", len(commands))
	}
	if commands[0].PlayerID != 1 || commands[0].Position.X != 2 {
		t.Errorf("player 1 position wrong: %+v", commands[0])
	}
	if commands[1].PlayerID != 2 || commands[1].Position.X != 20 {
		t.Errorf("player 2 position wrong: %+v", commands[1])
	}
}

// TestDrainPreservesOrder tests that non-position commands keep arrival order
func TestDrainPreservesOrder(t *testing.T) {
	ch := make(chan Command, 16)
	kinds := []CommandKind{CmdShoot, CmdReload, CmdShoot, CmdWeaponSwitch}
	for _, k := range kinds {
		ch <- Command{Kind: k, PlayerID: 1}
	}

	commands, _, _ := drainForTest(ch)
	if len(commands) != len(kinds) {
		t.Fatalf("Expected %d commands, got %d", len(kinds), len(commands))
	}
	for i, k := range kinds {
		if commands[i].Kind != k {
			t.Errorf("slot %d: expected %v, got %v", i, k, commands[i].Kind)
		}
	}
}

// TestDrainEmptyQueue tests the non-blocking drain of an empty channel
func TestDrainEmptyQueue(t *testing.T) {
	ch := make(chan Command, 4)
	commands, open, _ := drainForTest(ch)
	if len(commands) != 0 {
		t.Errorf("Expected no commands, got %d", len(commands))
	}
	if !open {
		t.Error("channel should be open")
	}
}

// TestDrainClosedChannel tests the shutdown signal
func TestDrainClosedChannel(t *testing.T) {
	ch := make(chan Command, 4)
	ch <- Command{Kind: CmdReload, PlayerID: 1}
	close(ch)

	commands, open, _ := drainForTest(ch)
	if open {
		t.Error("drain should report a closed channel")
	}
	if len(commands) != 1 {
		t.Errorf("pending command should still be drained, got %d", len(commands))
	}
}

// TestEnqueueOverflow tests the producer-side drop on a full queue
func TestEnqueueOverflow(t *testing.T) {
	dropped := 0
	engine := NewEngine(EngineConfig{
		Lobby:            NewLobby("Q", 8, "world"),
		Weapons:          LoadCatalog(),
		Sender:           &fakeSender{},
		QueueSize:        2,
		OnDroppedCommand: func() { dropped++ },
	})

	if !engine.Enqueue(Command{Kind: CmdReload, PlayerID: 1}) {
		t.Fatal("first enqueue should succeed")
	}
	if !engine.Enqueue(Command{Kind: CmdReload, PlayerID: 2}) {
		t.Fatal("second enqueue should succeed")
	}
	if engine.Enqueue(Command{Kind: CmdReload, PlayerID: 3}) {
		t.Error("enqueue on a full queue should drop")
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped command, got %d", dropped)
	}
}
