package main

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Clue is one question/answer unit on the board. AlreadyPlayed is terminal:
// once set, the clue can never be reopened or rescored.
type Clue struct {
	Text          string `json:"text"`
	Answer        string `json:"answer"`
	Value         int    `json:"value,omitempty"`
	IsDailyDouble bool   `json:"isDailyDouble,omitempty"`
	AlreadyPlayed bool   `json:"alreadyPlayed,omitempty"`
}

// GameBoard is one category column of clues, ordered top to bottom.
type GameBoard struct {
	Category string `json:"category"`
	Clues    []Clue `json:"clues"`
}

// PlayerObject holds the data we store server-side per player.
type PlayerObject struct {
	Score int    `json:"score"`
	Count int    `json:"count"`
	Name  string `json:"name"`
}

// HistoryPlayer is one entry in the append-only scoring log. Score is the
// delta applied by a single answer; TotalScore is the player's balance
// immediately after it.
type HistoryPlayer struct {
	Socket     string    `json:"socket"`
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	TotalScore int       `json:"totalScore"`
	Answer     string    `json:"answer"` // "correct" or "incorrect"
	TimeStamp  time.Time `json:"timeStamp"`
}

// GameState is the single authoritative state of the running match,
// serialized in full to every client after each accepted mutation.
type GameState struct {
	GUID              string                  `json:"guid"`
	Players           map[string]PlayerObject `json:"players"`
	GameBoard         []GameBoard             `json:"gameBoard"`
	IsBuzzerActive    bool                    `json:"isBuzzerActive"`
	ActivePlayer      string                  `json:"activePlayer"`
	LastActivePlayer  string                  `json:"lastActivePlayer"`
	IncorrectGuesses  []string                `json:"incorrectGuesses"`
	ActiveClue        *Clue                   `json:"activeClue"`
	DailyDoubleAmount int                     `json:"dailyDoubleAmount,omitempty"`
	Round             int                     `json:"round"`
	History           []HistoryPlayer         `json:"history"`
}

func newGameState(board []GameBoard, round int) *GameState {
	return &GameState{
		GUID:             uuid.NewString(),
		Players:          make(map[string]PlayerObject),
		GameBoard:        boardForRound(board, round),
		IncorrectGuesses: []string{},
		Round:            round,
		History:          []HistoryPlayer{},
	}
}

// clone returns a deep copy safe to hand to the broadcast path while the
// original keeps mutating.
func (s *GameState) clone() *GameState {
	out := *s
	out.Players = maps.Clone(s.Players)
	out.GameBoard = cloneBoard(s.GameBoard)
	out.IncorrectGuesses = slices.Clone(s.IncorrectGuesses)
	out.History = slices.Clone(s.History)
	if s.ActiveClue != nil {
		clue := *s.ActiveClue
		out.ActiveClue = &clue
	}
	return &out
}

func cloneBoard(board []GameBoard) []GameBoard {
	out := make([]GameBoard, len(board))
	for i, category := range board {
		category.Clues = slices.Clone(category.Clues)
		out[i] = category
	}
	return out
}

// namedPlayerCount counts players that have completed sign-up. Entries
// without a name (bare connections) never take part in guess exhaustion.
func (s *GameState) namedPlayerCount() int {
	count := 0
	for _, p := range s.Players {
		if p.Name != "" {
			count++
		}
	}
	return count
}
