package game

import "github.com/jason-s-yu/bang/internal/models"

// DiscardPile is a stack of cards removed from hands, most recent on top.
// The deck never draws from it; exhaustion regenerates the full catalog.
type DiscardPile struct {
	cards []models.Card
}

func (p *DiscardPile) Push(card models.Card) {
	p.cards = append(p.cards, card)
}

// Pop removes the top card. ok is false when the pile is empty.
func (p *DiscardPile) Pop() (card models.Card, ok bool) {
	if len(p.cards) == 0 {
		return "", false
	}
	card = p.cards[len(p.cards)-1]
	p.cards = p.cards[:len(p.cards)-1]
	return card, true
}

// Peek returns the top card without removing it.
func (p *DiscardPile) Peek() (models.Card, bool) {
	if len(p.cards) == 0 {
		return "", false
	}
	return p.cards[len(p.cards)-1], true
}

func (p *DiscardPile) Len() int {
	return len(p.cards)
}
