package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed boards/default.json
var defaultBoard []byte

// loadBoard reads a game board from the given JSON file, falling back to
// the embedded default board when no path is configured.
func loadBoard(path string) ([]GameBoard, error) {
	data := defaultBoard

	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading board file: %w", err)
		}
	}

	var board []GameBoard
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("parsing board: %w", err)
	}

	if err := validateBoard(board); err != nil {
		return nil, err
	}

	return board, nil
}

func validateBoard(board []GameBoard) error {
	if len(board) == 0 {
		return fmt.Errorf("board has no categories")
	}

	for i, category := range board {
		if category.Category == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if len(category.Clues) == 0 {
			return fmt.Errorf("category %q has no clues", category.Category)
		}
		for j, clue := range category.Clues {
			if clue.Text == "" || clue.Answer == "" {
				return fmt.Errorf("clue %d in category %q is missing text or answer", j, category.Category)
			}
		}
	}

	return nil
}

// clueValue derives a clue's point value from its row on the board and the
// current round: 200 through 1000 in round one, doubled in round two.
func clueValue(row, round int) int {
	return (row + 1) * 100 * (round * 2)
}

// boardForRound copies the board template with per-position values filled
// in for the given round and all played/wager markers cleared.
func boardForRound(board []GameBoard, round int) []GameBoard {
	out := cloneBoard(board)
	for i := range out {
		for j := range out[i].Clues {
			out[i].Clues[j].Value = clueValue(j, round)
			out[i].Clues[j].AlreadyPlayed = false
		}
	}
	return out
}
