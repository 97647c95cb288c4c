package content

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/game"
)

func ReadBank(path string) (*Bank, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening question bank %s: %w", path, err)
	}
	defer file.Close()

	var bank Bank
	if err := json.NewDecoder(file).Decode(&bank); err != nil {
		return nil, fmt.Errorf("decoding question bank %s: %w", path, err)
	}
	if err := bank.Validate(); err != nil {
		return nil, fmt.Errorf("question bank %s: %w", path, err)
	}
	return &bank, nil
}

func (b *Bank) Validate() error {
	if len(b.Topics) == 0 {
		return fmt.Errorf("no topics")
	}
	for _, topic := range b.Topics {
		for _, q := range topic.Questions {
			if q.Answer < 0 || q.Answer >= len(q.Options) {
				return fmt.Errorf("question %s: answer %d out of range", q.ID, q.Answer)
			}
		}
	}
	return nil
}

// Provider serves shuffled question sequences and drawing words from a bank.
type Provider struct {
	bank *Bank
	mu   sync.Mutex
	rng  *rand.Rand
}

func NewProvider(bank *Bank) *Provider {
	return NewProviderWithSource(bank, rand.NewSource(time.Now().UnixNano()))
}

func NewProviderWithSource(bank *Bank, src rand.Source) *Provider {
	return &Provider{bank: bank, rng: rand.New(src)}
}

func (p *Provider) Topics() []TopicSummary {
	out := make([]TopicSummary, len(p.bank.Topics))
	for i, t := range p.bank.Topics {
		out[i] = TopicSummary{ID: t.ID, Label: t.Label, Questions: len(t.Questions)}
	}
	return out
}

// Questions draws up to selection.Count questions from the selected topics
// (all topics when none are named) in random order.
func (p *Provider) Questions(ctx context.Context, selection game.ContentSelection) ([]game.Question, error) {
	wanted := make(map[string]bool, len(selection.Topics))
	for _, id := range selection.Topics {
		wanted[id] = true
	}

	pool := []game.Question{}
	for _, topic := range p.bank.Topics {
		if len(wanted) > 0 && !wanted[topic.ID] {
			continue
		}
		for _, q := range topic.Questions {
			pool = append(pool, game.Question{
				ID:            q.ID,
				Prompt:        q.Prompt,
				Options:       q.Options,
				CorrectAnswer: q.Answer,
				TopicLabel:    topic.Label,
			})
		}
	}
	if len(pool) == 0 {
		return nil, apperrors.InvalidState("no questions for the selected topics")
	}

	p.mu.Lock()
	p.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	p.mu.Unlock()

	if selection.Count > 0 && selection.Count < len(pool) {
		pool = pool[:selection.Count]
	}
	return pool, nil
}

// Word picks a drawing word that is not in used.
func (p *Provider) Word(ctx context.Context, used []string) (string, error) {
	seen := make(map[string]bool, len(used))
	for _, w := range used {
		seen[strings.ToLower(w)] = true
	}
	candidates := []string{}
	for _, w := range p.bank.Words {
		if !seen[strings.ToLower(w)] && strings.TrimSpace(w) != "" {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return "", apperrors.InvalidState("no drawing words left")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return candidates[p.rng.Intn(len(candidates))], nil
}

// Shuffle returns a shuffled copy of ids.
func (p *Provider) Shuffle(ids []string) []string {
	out := append([]string{}, ids...)
	p.mu.Lock()
	p.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	p.mu.Unlock()
	return out
}
