package main

import (
	"encoding/json"
	"testing"
	"time"
)

func populatedState() *GameState {
	return &GameState{
		GUID: "b51f8b43-6a26-4a36-8e04-a09c68f4e373",
		Players: map[string]PlayerObject{
			"id-alpha": {Score: 400, Count: 3, Name: "Alpha"},
			"id-beta":  {Score: -200, Count: 0, Name: "Beta"},
		},
		GameBoard: []GameBoard{
			{Category: "Tests", Clues: []Clue{
				{Text: "clue one", Answer: "answer one", Value: 200, AlreadyPlayed: true},
				{Text: "clue two", Answer: "answer two", Value: 400, IsDailyDouble: true},
			}},
		},
		IsBuzzerActive:    false,
		ActivePlayer:      "id-alpha",
		LastActivePlayer:  "id-beta",
		IncorrectGuesses:  []string{"id-beta"},
		ActiveClue:        &Clue{Text: "clue two", Answer: "answer two", Value: 400, IsDailyDouble: true},
		DailyDoubleAmount: 1000,
		Round:             1,
		History: []HistoryPlayer{
			{
				Socket:     "id-alpha",
				Name:       "Alpha",
				Score:      400,
				TotalScore: 400,
				Answer:     "correct",
				TimeStamp:  time.Date(2026, time.March, 14, 19, 30, 0, 0, time.UTC),
			},
		},
	}
}

// Serializing GameState to the wire format and back must lose nothing.
func TestGameStateRoundTrip(t *testing.T) {
	original := populatedState()

	first, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded GameState
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second, err := json.Marshal(&decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("round trip lost fields:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := populatedState()
	copied := original.clone()

	copied.Players["id-alpha"] = PlayerObject{Score: 9999, Name: "Alpha"}
	copied.GameBoard[0].Clues[1].AlreadyPlayed = true
	copied.IncorrectGuesses = append(copied.IncorrectGuesses, "id-gamma")
	copied.ActiveClue.Text = "mutated"
	copied.History = append(copied.History, HistoryPlayer{Socket: "id-gamma"})

	if original.Players["id-alpha"].Score != 400 {
		t.Fatalf("clone shares the players map")
	}
	if original.GameBoard[0].Clues[1].AlreadyPlayed {
		t.Fatalf("clone shares the board")
	}
	if len(original.IncorrectGuesses) != 1 {
		t.Fatalf("clone shares incorrectGuesses")
	}
	if original.ActiveClue.Text != "clue two" {
		t.Fatalf("clone shares activeClue")
	}
	if len(original.History) != 1 {
		t.Fatalf("clone shares history")
	}
}

func TestNamedPlayerCountSkipsBareConnections(t *testing.T) {
	state := populatedState()
	state.Players["id-lurker"] = PlayerObject{}

	if got := state.namedPlayerCount(); got != 2 {
		t.Fatalf("expected 2 named players, got %d", got)
	}
}
