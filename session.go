package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
)

// Inbound event vocabulary. Names are part of the wire protocol and match
// what the reference client emits.
const (
	evtPlayerSignedUp  = "player signed up"
	evtSelectClue      = "Host selects a clue"
	evtSetWager        = "A player sets daily double wager"
	evtActivateBuzzers = "Host activates the buzzers"
	evtBuzz            = "A player buzzes in"
	evtAnswer          = "A player answers the clue"
	evtNobodyKnows     = "No player knows the answer"
	evtCounterClicked  = "counter clicked"
	evtResetBuzzer     = "Host resets the buzzer"
	evtRestartGame     = "Host restarts the game"
)

// ClientMessage is the single inbound message shape. Type selects the
// event; the remaining fields are its payload.
type ClientMessage struct {
	Type              string `json:"type"`
	Name              string `json:"name,omitempty"`              // player signed up
	Value             int    `json:"value,omitempty"`             // A player answers the clue (sign carries correct/incorrect)
	DailyDoubleAmount int    `json:"dailyDoubleAmount,omitempty"` // A player sets daily double wager
	ArrayIndex        *int   `json:"arrayIndex,omitempty"`        // clue reference: category index
	ClueText          string `json:"clueText,omitempty"`          // clue reference: text within the category
}

// Session error kinds.
const (
	errInvalidReference   = "invalid_reference"
	errProtocolViolation  = "protocol_violation"
	errPreconditionFailed = "precondition_failed"
)

// SessionError classifies why an event was rejected. PreconditionFailed
// events are expected races and are dropped without a reply; the other two
// kinds are reported back to the originating client only.
type SessionError struct {
	Kind    string `json:"code"`
	Message string `json:"message"`
}

func (e *SessionError) Error() string {
	return e.Kind + ": " + e.Message
}

func (e *SessionError) silent() bool {
	return e.Kind == errPreconditionFailed
}

func invalidReference(format string, args ...any) *SessionError {
	return &SessionError{Kind: errInvalidReference, Message: fmt.Sprintf(format, args...)}
}

func protocolViolation(format string, args ...any) *SessionError {
	return &SessionError{Kind: errProtocolViolation, Message: fmt.Sprintf(format, args...)}
}

func preconditionFailed(format string, args ...any) *SessionError {
	return &SessionError{Kind: errPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

// sessionStore owns the only mutable GameState. Every mutation goes
// through Apply (or one of the connection-lifecycle methods below), and
// the caller must serialize those calls; the hub's run loop is the single
// writer.
type sessionStore struct {
	state     *GameState
	template  []GameBoard
	clock     clockwork.Clock
	activeCat int
	activeIdx int
	wagerSet  bool
}

func newSession(board []GameBoard, clock clockwork.Clock) *sessionStore {
	return &sessionStore{
		state:     newGameState(board, 1),
		template:  cloneBoard(board),
		clock:     clock,
		activeCat: -1,
		activeIdx: -1,
	}
}

// Snapshot returns a deep copy of the current state.
func (s *sessionStore) Snapshot() *GameState {
	return s.state.clone()
}

// Apply validates and executes one inbound event on behalf of playerID,
// returning a post-mutation snapshot on success. On error the state is
// guaranteed unchanged.
func (s *sessionStore) Apply(playerID string, msg ClientMessage) (*GameState, *SessionError) {
	if playerID == "" {
		return nil, protocolViolation("missing player id")
	}

	var serr *SessionError

	switch msg.Type {
	case evtPlayerSignedUp:
		serr = s.signUp(playerID, msg)
	case evtSelectClue:
		serr = s.selectClue(msg)
	case evtSetWager:
		serr = s.setWager(msg)
	case evtActivateBuzzers:
		serr = s.activateBuzzers()
	case evtBuzz:
		serr = s.buzz(playerID)
	case evtAnswer:
		serr = s.answer(msg)
	case evtNobodyKnows:
		serr = s.nobodyKnows(msg)
	case evtCounterClicked:
		serr = s.counterClicked(playerID)
	case evtResetBuzzer:
		serr = s.resetBuzzer()
	case evtRestartGame:
		serr = s.restartGame()
	default:
		serr = protocolViolation("unknown event %q", msg.Type)
	}

	if serr != nil {
		return nil, serr
	}

	return s.state.clone(), nil
}

// resolveClue locates the clue a payload refers to, without checking any
// game-state preconditions.
func (s *sessionStore) resolveClue(msg ClientMessage) (int, int, *Clue, *SessionError) {
	if msg.ArrayIndex == nil || msg.ClueText == "" {
		return 0, 0, nil, protocolViolation("event %q requires arrayIndex and clueText", msg.Type)
	}

	cat := *msg.ArrayIndex
	if cat < 0 || cat >= len(s.state.GameBoard) {
		return 0, 0, nil, invalidReference("category index %d out of bounds", cat)
	}

	for i := range s.state.GameBoard[cat].Clues {
		if s.state.GameBoard[cat].Clues[i].Text == msg.ClueText {
			return cat, i, &s.state.GameBoard[cat].Clues[i], nil
		}
	}

	return 0, 0, nil, invalidReference("no clue %q in category %d", msg.ClueText, cat)
}

// refersToActiveClue reports whether the located clue is the one currently
// open on the board.
func (s *sessionStore) refersToActiveClue(cat, idx int) bool {
	return s.state.ActiveClue != nil && cat == s.activeCat && idx == s.activeIdx
}

func (s *sessionStore) signUp(playerID string, msg ClientMessage) *SessionError {
	if msg.Name == "" {
		return protocolViolation("player name must not be empty")
	}

	player := s.state.Players[playerID]
	player.Name = msg.Name
	s.state.Players[playerID] = player

	return nil
}

func (s *sessionStore) selectClue(msg ClientMessage) *SessionError {
	cat, idx, clue, serr := s.resolveClue(msg)
	if serr != nil {
		return serr
	}

	if s.state.ActiveClue != nil {
		return preconditionFailed("a clue is already open")
	}
	if clue.AlreadyPlayed {
		return preconditionFailed("clue %q has already been played", clue.Text)
	}

	open := *clue
	s.state.ActiveClue = &open
	s.activeCat = cat
	s.activeIdx = idx
	s.state.DailyDoubleAmount = 0
	s.wagerSet = false

	return nil
}

// clampWager forces the wager into [200, max(holderScore, 1000)] in steps
// of 200.
func clampWager(wager, holderScore int) int {
	limit := holderScore
	if limit < 1000 {
		limit = 1000
	}
	if wager > limit {
		wager = limit
	}
	wager -= wager % 200
	if wager < 200 {
		wager = 200
	}
	return wager
}

func (s *sessionStore) setWager(msg ClientMessage) *SessionError {
	cat, idx, _, serr := s.resolveClue(msg)
	if serr != nil {
		return serr
	}

	if !s.refersToActiveClue(cat, idx) {
		return preconditionFailed("wager does not refer to the open clue")
	}
	if !s.state.ActiveClue.IsDailyDouble {
		return preconditionFailed("open clue is not a daily double")
	}

	holder := s.state.ActivePlayer
	if holder == "" {
		holder = s.state.LastActivePlayer
	}

	s.state.DailyDoubleAmount = clampWager(msg.DailyDoubleAmount, s.state.Players[holder].Score)
	s.wagerSet = true

	return nil
}

func (s *sessionStore) activateBuzzers() *SessionError {
	if s.state.ActiveClue == nil {
		return preconditionFailed("no clue is open")
	}
	if s.state.ActivePlayer != "" {
		return preconditionFailed("a player already holds the buzz lock")
	}
	if s.state.IsBuzzerActive {
		return preconditionFailed("buzzers are already active")
	}

	s.state.IsBuzzerActive = true

	return nil
}

func (s *sessionStore) buzz(playerID string) *SessionError {
	// Repeat buzzes after the lock is taken, and buzzes outside an armed
	// window, are expected races: dropped without a reply.
	if !s.state.IsBuzzerActive {
		return preconditionFailed("buzzers are not active")
	}

	player, ok := s.state.Players[playerID]
	if !ok || player.Name == "" {
		return invalidReference("player %q has not signed up", playerID)
	}

	for _, id := range s.state.IncorrectGuesses {
		if id == playerID {
			return preconditionFailed("player %q already answered this clue", playerID)
		}
	}

	s.state.ActivePlayer = playerID
	s.state.LastActivePlayer = playerID
	s.state.IsBuzzerActive = false

	return nil
}

func (s *sessionStore) answer(msg ClientMessage) *SessionError {
	cat, idx, clue, serr := s.resolveClue(msg)
	if serr != nil {
		return serr
	}

	if msg.Value == 0 {
		return protocolViolation("answer value must be non-zero")
	}
	if clue.AlreadyPlayed {
		return preconditionFailed("clue %q has already been played", clue.Text)
	}
	if !s.refersToActiveClue(cat, idx) {
		return preconditionFailed("answer does not refer to the open clue")
	}

	target := s.state.ActivePlayer
	if target == "" && s.state.ActiveClue.IsDailyDouble {
		// Daily doubles are answered without a buzz; the wagering player
		// keeps board control.
		target = s.state.LastActivePlayer
	}
	if target == "" {
		return preconditionFailed("no player holds the buzz lock")
	}

	player, ok := s.state.Players[target]
	if !ok {
		return invalidReference("player %q is not in the game", target)
	}

	correct := msg.Value > 0

	delta := msg.Value
	if s.state.ActiveClue.IsDailyDouble && s.wagerSet {
		delta = s.state.DailyDoubleAmount
		if !correct {
			delta = -delta
		}
	}

	player.Score += delta
	s.state.Players[target] = player

	outcome := "correct"
	if !correct {
		outcome = "incorrect"
	}

	s.state.History = append(s.state.History, HistoryPlayer{
		Socket:     target,
		Name:       player.Name,
		Score:      delta,
		TotalScore: player.Score,
		Answer:     outcome,
		TimeStamp:  s.clock.Now(),
	})

	s.state.LastActivePlayer = target
	s.state.ActivePlayer = ""

	if correct {
		s.closeClue()
		return nil
	}

	if !contains(s.state.IncorrectGuesses, target) {
		s.state.IncorrectGuesses = append(s.state.IncorrectGuesses, target)
	}

	// Once every named player has missed, the clue closes in the same
	// step; otherwise the buzzers re-arm for the remaining players.
	if len(s.state.IncorrectGuesses) >= s.state.namedPlayerCount() {
		s.closeClue()
	} else {
		s.state.IsBuzzerActive = true
	}

	return nil
}

func (s *sessionStore) nobodyKnows(msg ClientMessage) *SessionError {
	cat, idx, _, serr := s.resolveClue(msg)
	if serr != nil {
		return serr
	}

	if !s.refersToActiveClue(cat, idx) {
		return preconditionFailed("no such clue is open")
	}

	if s.state.ActivePlayer != "" {
		s.state.LastActivePlayer = s.state.ActivePlayer
	}
	s.state.ActivePlayer = ""
	s.closeClue()

	return nil
}

// closeClue marks the open clue as played and returns the buzzer state
// machine to idle. AlreadyPlayed is never cleared again.
func (s *sessionStore) closeClue() {
	if s.activeCat >= 0 && s.activeIdx >= 0 {
		s.state.GameBoard[s.activeCat].Clues[s.activeIdx].AlreadyPlayed = true
	}

	s.state.ActiveClue = nil
	s.activeCat = -1
	s.activeIdx = -1
	s.state.IncorrectGuesses = s.state.IncorrectGuesses[:0]
	s.state.IsBuzzerActive = false
	s.state.DailyDoubleAmount = 0
	s.wagerSet = false
}

func (s *sessionStore) counterClicked(playerID string) *SessionError {
	player, ok := s.state.Players[playerID]
	if !ok {
		return invalidReference("player %q is not in the game", playerID)
	}

	player.Count++
	s.state.Players[playerID] = player

	return nil
}

func (s *sessionStore) resetBuzzer() *SessionError {
	if s.state.ActivePlayer == "" && !s.state.IsBuzzerActive {
		return preconditionFailed("nothing to reset")
	}

	if s.state.ActivePlayer != "" {
		s.state.LastActivePlayer = s.state.ActivePlayer
	}
	s.state.ActivePlayer = ""
	s.state.IsBuzzerActive = false

	return nil
}

func (s *sessionStore) restartGame() *SessionError {
	fresh := newGameState(s.template, 1)

	// Players stay seated with zeroed scores; everything else starts over.
	for id, player := range s.state.Players {
		fresh.Players[id] = PlayerObject{Name: player.Name}
	}

	s.state = fresh
	s.activeCat = -1
	s.activeIdx = -1
	s.wagerSet = false

	return nil
}

// ReleaseDisconnected frees the buzz lock if the departed player held it,
// re-arming the buzzers so the remaining players can answer. Reports
// whether state changed.
func (s *sessionStore) ReleaseDisconnected(playerID string) (*GameState, bool) {
	if playerID == "" || s.state.ActivePlayer != playerID {
		return nil, false
	}

	s.state.LastActivePlayer = playerID
	s.state.ActivePlayer = ""
	if s.state.ActiveClue != nil {
		s.state.IsBuzzerActive = true
	}

	return s.state.clone(), true
}

// RemovePlayer drops a player that never reconnected. History keeps their
// scored answers; the live roster and the current clue's guess list do not.
func (s *sessionStore) RemovePlayer(playerID string) (*GameState, bool) {
	if _, ok := s.state.Players[playerID]; !ok {
		return nil, false
	}

	delete(s.state.Players, playerID)

	guesses := s.state.IncorrectGuesses[:0]
	for _, id := range s.state.IncorrectGuesses {
		if id != playerID {
			guesses = append(guesses, id)
		}
	}
	s.state.IncorrectGuesses = guesses

	if s.state.ActivePlayer == playerID {
		s.state.LastActivePlayer = playerID
		s.state.ActivePlayer = ""
		if s.state.ActiveClue != nil {
			s.state.IsBuzzerActive = true
		}
	}

	// A shrinking roster can leave the current guess list covering every
	// remaining named player; the open clue must close now, not wait for
	// a buzz that no one is allowed to make.
	if s.state.ActiveClue != nil &&
		len(s.state.IncorrectGuesses) > 0 &&
		len(s.state.IncorrectGuesses) >= s.state.namedPlayerCount() {
		s.closeClue()
	}

	return s.state.clone(), true
}

// ExpireBuzzerWindow closes an armed window in which nobody buzzed. Only
// meaningful when a buzzer timeout is configured.
func (s *sessionStore) ExpireBuzzerWindow() (*GameState, bool) {
	if !s.state.IsBuzzerActive || s.state.ActivePlayer != "" {
		return nil, false
	}

	s.state.IsBuzzerActive = false

	return s.state.clone(), true
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
