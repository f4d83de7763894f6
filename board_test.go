package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultBoard(t *testing.T) {
	board, err := loadBoard("")
	if err != nil {
		t.Fatalf("loadBoard: %v", err)
	}

	if len(board) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(board))
	}

	doubles := 0
	for _, category := range board {
		if len(category.Clues) != 5 {
			t.Fatalf("category %q has %d clues, want 5", category.Category, len(category.Clues))
		}
		for _, clue := range category.Clues {
			if clue.IsDailyDouble {
				doubles++
			}
		}
	}

	if doubles != 1 {
		t.Fatalf("expected exactly one daily double, got %d", doubles)
	}
}

func TestLoadBoardFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	data := `[{"category":"Custom","clues":[{"text":"q","answer":"a"}]}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	board, err := loadBoard(path)
	if err != nil {
		t.Fatalf("loadBoard: %v", err)
	}
	if len(board) != 1 || board[0].Category != "Custom" {
		t.Fatalf("unexpected board: %+v", board)
	}
}

func TestLoadBoardRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty", `[]`},
		{"no clues", `[{"category":"Empty","clues":[]}]`},
		{"missing answer", `[{"category":"Bad","clues":[{"text":"q"}]}]`},
		{"not json", `{"category":`},
	}

	for _, c := range cases {
		path := filepath.Join(t.TempDir(), "board.json")
		if err := os.WriteFile(path, []byte(c.data), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadBoard(path); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestLoadBoardMissingFile(t *testing.T) {
	if _, err := loadBoard(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestClueValue(t *testing.T) {
	cases := []struct {
		row, round, want int
	}{
		{0, 1, 200},
		{4, 1, 1000},
		{0, 2, 400},
		{4, 2, 2000},
	}

	for _, c := range cases {
		if got := clueValue(c.row, c.round); got != c.want {
			t.Errorf("clueValue(%d, %d) = %d, want %d", c.row, c.round, got, c.want)
		}
	}
}

func TestBoardForRoundFillsValues(t *testing.T) {
	template := []GameBoard{
		{Category: "Tests", Clues: []Clue{
			{Text: "q1", Answer: "a1", AlreadyPlayed: true},
			{Text: "q2", Answer: "a2"},
		}},
	}

	board := boardForRound(template, 1)

	if board[0].Clues[0].Value != 200 || board[0].Clues[1].Value != 400 {
		t.Fatalf("unexpected values: %+v", board[0].Clues)
	}
	if board[0].Clues[0].AlreadyPlayed {
		t.Fatalf("boardForRound must clear played markers")
	}
	if template[0].Clues[0].Value != 0 {
		t.Fatalf("boardForRound mutated the template")
	}
}
