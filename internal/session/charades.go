package session

import (
	"math/rand"
	"strings"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
)

// CharadesGame is the drawing-and-guessing state machine of one lobby. Like
// QuizGame it is owned by a single session actor.
type CharadesGame struct {
	state *game.CharadesState
	slots map[string]*game.PlayerSlot
	left  map[string]bool
	used  []string
	rng   *rand.Rand
	unit  time.Duration
}

type GuessOutcome struct {
	Correct      bool           `json:"correct"`
	Points       int            `json:"points"`
	DrawerPoints int            `json:"drawerPoints"`
	RoundEnded   bool           `json:"roundEnded"`
	Entry        game.ChatEntry `json:"entry"`
	Public       game.ChatEntry `json:"-"`
}

// NewCharadesGame takes ownership of state; unit is the length of one
// configured second.
func NewCharadesGame(l *game.Lobby, state *game.CharadesState, rng *rand.Rand, unit time.Duration) *CharadesGame {
	g := &CharadesGame{
		state: state,
		slots: make(map[string]*game.PlayerSlot, len(l.Players)),
		left:  map[string]bool{},
		used:  []string{state.CurrentWord},
		rng:   rng,
		unit:  unit,
	}
	for id, slot := range l.Players {
		copied := *slot
		g.slots[id] = &copied
	}
	return g
}

func (g *CharadesGame) State() *game.CharadesState {
	return g.state
}

func (g *CharadesGame) View() game.CharadesView {
	return g.state.View()
}

func (g *CharadesGame) UsedWords() []string {
	return append([]string{}, g.used...)
}

func (g *CharadesGame) Slot(playerID string) game.PlayerSlot {
	return *g.slots[playerID]
}

func (g *CharadesGame) Standings() []game.Standing {
	slots := make([]game.PlayerSlot, 0, len(g.slots))
	for _, s := range g.slots {
		slots = append(slots, *s)
	}
	return game.Rank(slots)
}

func (g *CharadesGame) Duration() time.Duration {
	return time.Duration(g.state.DurationSeconds) * g.unit
}

// RevealInterval is the pause between hints for the current word.
func (g *CharadesGame) RevealInterval() (time.Duration, bool) {
	every, ok := RevealEvery(len(game.LetterIndices(g.state.CurrentWord)), g.state.DurationSeconds)
	return time.Duration(every) * g.unit, ok
}

func (g *CharadesGame) guessers() []string {
	ids := []string{}
	for id, slot := range g.slots {
		if id != g.state.DrawerID && !g.left[id] && !slot.IsBot {
			ids = append(ids, id)
		}
	}
	return ids
}

func (g *CharadesGame) pending() int {
	n := 0
	for _, id := range g.guessers() {
		if !g.state.HasGuessed(id) {
			n++
		}
	}
	return n
}

func (g *CharadesGame) active() int {
	n := 0
	for id := range g.slots {
		if !g.left[id] {
			n++
		}
	}
	return n
}

// RevealNext discloses one random hidden letter. It reports the index and
// whether the round ended because every letter is now visible.
func (g *CharadesGame) RevealNext() (int, bool, bool) {
	if g.state.Status != game.CharadesDrawing {
		return 0, false, false
	}
	hidden := []int{}
	for _, i := range game.LetterIndices(g.state.CurrentWord) {
		if !g.state.IsRevealed(i) {
			hidden = append(hidden, i)
		}
	}
	if len(hidden) == 0 {
		g.endRound("")
		return 0, false, true
	}
	pick := hidden[g.rng.Intn(len(hidden))]
	g.state.RevealedIndices = append(g.state.RevealedIndices, pick)
	if len(hidden) == 1 {
		g.endRound("")
		return pick, true, true
	}
	return pick, true, false
}

// Guess checks a chat message against the secret word.
func (g *CharadesGame) Guess(playerID, displayName, text string, now time.Time) (GuessOutcome, error) {
	if _, ok := g.slots[playerID]; !ok || g.left[playerID] {
		return GuessOutcome{}, apperrors.Forbidden("player is not in this session")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return GuessOutcome{}, apperrors.NewAppError(400, "empty message", nil)
	}

	entry := game.ChatEntry{PlayerID: playerID, DisplayName: displayName, Text: text, SentAt: now}
	out := GuessOutcome{Entry: entry, Public: entry}
	revealsWord := strings.EqualFold(text, g.state.CurrentWord)

	drawing := g.state.Status == game.CharadesDrawing
	if !drawing || playerID == g.state.DrawerID || g.state.HasGuessed(playerID) {
		if drawing && revealsWord {
			out.Public = entry.Redact()
		}
		return out, nil
	}
	if !revealsWord {
		return out, nil
	}

	remaining := g.Duration() - now.Sub(g.state.StartTime)
	guesser, drawer := GuessPoints(remaining, g.Duration())
	g.award(playerID, guesser)
	g.award(g.state.DrawerID, drawer)
	g.state.GuessedBy = append(g.state.GuessedBy, playerID)

	out.Correct = true
	out.Points = guesser
	out.DrawerPoints = drawer
	out.Entry.Correct = true
	out.Public = out.Entry.Redact()

	if g.pending() == 0 {
		g.endRound(playerID)
		out.RoundEnded = true
	}
	return out, nil
}

func (g *CharadesGame) award(playerID string, points int) {
	slot, ok := g.slots[playerID]
	if !ok {
		return
	}
	slot.Merge(game.PlayerSlot{Score: slot.Score + points, LastCompletedIndex: slot.LastCompletedIndex})
}

// Timeout ends the given round if it is still being drawn.
func (g *CharadesGame) Timeout(round int) bool {
	if g.state.Status != game.CharadesDrawing || g.state.CurrentRound != round {
		return false
	}
	g.endRound("")
	return true
}

func (g *CharadesGame) endRound(winner string) {
	if winner == "" && len(g.state.GuessedBy) > 0 {
		winner = g.state.GuessedBy[0]
	}
	g.state.Status = game.CharadesRoundEnd
	g.state.RoundWinner = winner
}

// Finished reports whether no further round will be played.
func (g *CharadesGame) Finished() bool {
	return g.state.Status == game.CharadesFinished
}

// HasNextRound reports whether Advance would start another round.
func (g *CharadesGame) HasNextRound() bool {
	return g.state.CurrentRound < g.state.TotalRounds && g.active() >= 2
}

// Advance starts the next round with word, or finishes the game after the
// last round.
func (g *CharadesGame) Advance(word string, now time.Time) bool {
	if g.state.Status != game.CharadesRoundEnd {
		return false
	}
	if !g.HasNextRound() {
		g.Finish()
		return false
	}
	g.state.CurrentRound++
	g.state.DrawerID = g.nextDrawer(g.state.CurrentRound)
	g.state.CurrentWord = word
	g.state.StartTime = now
	g.state.RevealedIndices = []int{}
	g.state.GuessedBy = []string{}
	g.state.RoundWinner = ""
	g.state.Status = game.CharadesDrawing
	g.used = append(g.used, word)
	return true
}

// nextDrawer follows the fixed rotation, skipping players who left.
func (g *CharadesGame) nextDrawer(round int) string {
	for offset := 0; offset < len(g.state.DrawerOrder); offset++ {
		candidate := g.state.DrawerFor(round + offset)
		if !g.left[candidate] {
			return candidate
		}
	}
	return g.state.DrawerFor(round)
}

func (g *CharadesGame) Finish() {
	g.state.Status = game.CharadesFinished
	for id, slot := range g.slots {
		if !g.left[id] {
			slot.Finished = true
		}
	}
}

// Leave drops a player from the rotation. A departing drawer ends the round
// with no winner. The round also ends once nobody is left to guess.
func (g *CharadesGame) Leave(playerID string) (roundEnded bool) {
	slot, ok := g.slots[playerID]
	if !ok || g.left[playerID] {
		return false
	}
	g.left[playerID] = true
	slot.Finished = true
	if g.state.Status != game.CharadesDrawing {
		return false
	}
	if playerID == g.state.DrawerID {
		g.endRound("")
		g.state.RoundWinner = ""
		return true
	}
	if g.pending() == 0 {
		g.endRound("")
		return true
	}
	return false
}

// CanDraw reports whether playerID may write strokes right now.
func (g *CharadesGame) CanDraw(playerID string) error {
	if g.state.Status != game.CharadesDrawing {
		return apperrors.InvalidState("round is not in progress")
	}
	if playerID != g.state.DrawerID {
		return apperrors.Forbidden("only the drawer can draw")
	}
	return nil
}
