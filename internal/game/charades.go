package game

import (
	"errors"
	"strings"
	"time"
)

type CharadesStatus string

const (
	CharadesDrawing  CharadesStatus = "drawing"
	CharadesRoundEnd CharadesStatus = "round_end"
	CharadesFinished CharadesStatus = "finished"
)

// CanvasSize is the side of the virtual square canvas stroke points live on.
const CanvasSize = 1000.0

type CharadesState struct {
	CurrentWord     string         `json:"-"`
	DrawerID        string         `json:"drawerId"`
	StartTime       time.Time      `json:"startTime"`
	DurationSeconds int            `json:"durationSeconds"`
	TotalRounds     int            `json:"totalRounds"`
	CurrentRound    int            `json:"currentRound"`
	DrawerOrder     []string       `json:"drawerOrder"`
	RevealedIndices []int          `json:"revealedIndices"`
	GuessedBy       []string       `json:"guessedBy"`
	Status          CharadesStatus `json:"status"`
	RoundWinner     string         `json:"roundWinner,omitempty"`
}

// DrawerFor returns the drawer of a 1-based round number.
func (s *CharadesState) DrawerFor(round int) string {
	if len(s.DrawerOrder) == 0 || round < 1 {
		return ""
	}
	return s.DrawerOrder[(round-1)%len(s.DrawerOrder)]
}

// RoundManager is the participant clients treat as owning round advancement.
func (s *CharadesState) RoundManager() string {
	if len(s.DrawerOrder) == 0 {
		return ""
	}
	return s.DrawerOrder[0]
}

func (s *CharadesState) HasGuessed(playerID string) bool {
	for _, id := range s.GuessedBy {
		if id == playerID {
			return true
		}
	}
	return false
}

func (s *CharadesState) IsRevealed(index int) bool {
	for _, i := range s.RevealedIndices {
		if i == index {
			return true
		}
	}
	return false
}

// LetterIndices lists the positions of non-space characters in word.
func LetterIndices(word string) []int {
	indices := []int{}
	for i, r := range []rune(word) {
		if r != ' ' {
			indices = append(indices, i)
		}
	}
	return indices
}

// Mask hides unrevealed letters with underscores and keeps spaces.
func Mask(word string, revealed []int) string {
	shown := make(map[int]bool, len(revealed))
	for _, i := range revealed {
		shown[i] = true
	}
	runes := []rune(word)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case r == ' ':
			b.WriteRune(' ')
		case shown[i]:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// CharadesView is the public projection of the round: no secret word while drawing.
type CharadesView struct {
	DrawerID        string         `json:"drawerId"`
	RoundManager    string         `json:"roundManager"`
	StartTime       time.Time      `json:"startTime"`
	DurationSeconds int            `json:"durationSeconds"`
	TotalRounds     int            `json:"totalRounds"`
	CurrentRound    int            `json:"currentRound"`
	Mask            string         `json:"mask"`
	RevealedIndices []int          `json:"revealedIndices"`
	GuessedBy       []string       `json:"guessedBy"`
	Status          CharadesStatus `json:"status"`
	RoundWinner     string         `json:"roundWinner,omitempty"`
	Word            string         `json:"word,omitempty"`
}

func (s *CharadesState) View() CharadesView {
	v := CharadesView{
		DrawerID:        s.DrawerID,
		RoundManager:    s.RoundManager(),
		StartTime:       s.StartTime,
		DurationSeconds: s.DurationSeconds,
		TotalRounds:     s.TotalRounds,
		CurrentRound:    s.CurrentRound,
		Mask:            Mask(s.CurrentWord, s.RevealedIndices),
		RevealedIndices: append([]int{}, s.RevealedIndices...),
		GuessedBy:       append([]string{}, s.GuessedBy...),
		Status:          s.Status,
		RoundWinner:     s.RoundWinner,
	}
	if s.Status != CharadesDrawing {
		v.Word = s.CurrentWord
	}
	return v
}

type PointType string

const (
	PointStart PointType = "start"
	PointDraw  PointType = "draw"
)

type StrokePoint struct {
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Type  PointType `json:"type"`
	Color string    `json:"color"`
	Width float64   `json:"width"`
}

var ErrPointOutOfCanvas = errors.New("stroke point outside canvas")
var ErrInvalidPointType = errors.New("invalid stroke point type")

func (p StrokePoint) Validate() error {
	if p.X < 0 || p.X > CanvasSize || p.Y < 0 || p.Y > CanvasSize {
		return ErrPointOutOfCanvas
	}
	if p.Type != PointStart && p.Type != PointDraw {
		return ErrInvalidPointType
	}
	return nil
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Points []Point `json:"points"`
}

// Replay rebuilds strokes from an ordered point stream. A start point opens
// a stroke; draw points extend the open one, or open one if none is open.
// Replay has no side effects, so any viewer replaying the same stream gets
// the same strokes.
func Replay(points []StrokePoint) []Stroke {
	strokes := []Stroke{}
	for _, p := range points {
		if p.Type == PointStart || len(strokes) == 0 {
			strokes = append(strokes, Stroke{Color: p.Color, Width: p.Width})
		}
		last := &strokes[len(strokes)-1]
		last.Points = append(last.Points, Point{X: p.X, Y: p.Y})
	}
	return strokes
}

type ChatEntry struct {
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Correct     bool      `json:"correct"`
	Redacted    bool      `json:"redacted"`
	SentAt      time.Time `json:"sentAt"`
}

// Redact hides the text of an entry that reveals the word.
func (c ChatEntry) Redact() ChatEntry {
	c.Text = ""
	c.Redacted = true
	return c
}
