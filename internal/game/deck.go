package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/bang/internal/models"
)

// catalog is the fixed card list every deck instantiation is built from.
// Duplicate identifiers (e.g. the two Diligenza_P_9) are real, separate cards.
var catalog = [...]models.Card{
	"BANG!_K_2", "BANG!_K_3", "BANG!_K_4", "BANG!_K_5", "BANG!_K_6", "BANG!_K_7", "BANG!_K_8", "BANG!_K_9",
	"BANG!_C_2", "BANG!_C_3", "BANG!_C_4", "BANG!_C_5", "BANG!_C_6", "BANG!_C_7", "BANG!_C_8", "BANG!_C_9",
	"BANG!_C_10", "BANG!_C_J", "BANG!_C_Q", "BANG!_C_K", "BANG!_C_A",
	"BANG!_H_Q", "BANG!_H_K", "BANG!_H_A",
	"BANG!_P_A",
	"Missed!_P_10", "Missed!_P_J", "Missed!_P_Q", "Missed!_P_K", "Missed!_P_A",
	"Missed!_P_2", "Missed!_P_3", "Missed!_P_4", "Missed!_P_5", "Missed!_P_6", "Missed!_P_7", "Missed!_P_8",
	"Beer_H_6", "Beer_H_7", "Beer_H_8", "Beer_H_9", "Beer_H_10", "Beer_H_J",
	"Saloon_H_5",
	"Wells Fargo_H_3",
	"Diligenza_P_9", "Diligenza_P_9",
	"General Store_K_9", "General Store_P_Q",
	"Panic!_H_J", "Panic!_H_Q", "Panic!_H_A", "Panic!_C_8",
	"Cat Balou_C_9", "Cat Balou_C_10", "Cat Balou_C_J", "Cat Balou_H_K",
	"Indians!_C_K", "Indians!_C_A",
	"Duel_C_Q", "Duel_P_J", "Duel_K_8",
	"Gatling_H_10",
	"Mustang_H_8", "Mustang_H_9",
	"Appaloosa/Scope_P_A",
	"Barrel_P_Q", "Barrel_P_K",
	"Dynamite_H_2",
	"Jail_P_10", "Jail_P_J", "Jail_H_4",
	"Volcanic_P_10", "Volcanic_K_10",
	"Schofield_K_J", "Schofield_K_Q", "Schofield_P_A",
	"Remington_K_K",
	"Rev.Carbine_K_A",
	"Winchester_P_8",
}

// CatalogSize is the number of cards in one full deck.
const CatalogSize = len(catalog)

// Catalog returns a copy of the fixed card list in catalog order.
func Catalog() []models.Card {
	out := make([]models.Card, CatalogSize)
	copy(out, catalog[:])
	return out
}

// Deck is a draw pile over the fixed catalog. order holds a shuffled
// permutation of catalog indices and next is the draw cursor; everything at
// or after next is still undrawn. When the cursor reaches the end the deck
// regenerates a fresh full permutation rather than failing.
//
// A Deck is not safe for concurrent use.
type Deck struct {
	rng        *rand.Rand
	order      []int
	next       int
	reshuffles int
}

// NewDeck returns a shuffled deck seeded from the clock.
func NewDeck() *Deck {
	return NewDeckWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewDeckWithRand returns a shuffled deck drawing randomness from rng.
func NewDeckWithRand(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng, order: make([]int, CatalogSize)}
	d.shuffle()
	return d
}

func (d *Deck) shuffle() {
	for i := range d.order {
		d.order[i] = i
	}
	d.rng.Shuffle(len(d.order), func(i, j int) {
		d.order[i], d.order[j] = d.order[j], d.order[i]
	})
	d.next = 0
}

// Draw removes and returns the top card, reshuffling a new full catalog first
// if the deck is exhausted.
func (d *Deck) Draw() models.Card {
	if d.next >= len(d.order) {
		d.shuffle()
		d.reshuffles++
	}
	card := catalog[d.order[d.next]]
	d.next++
	return card
}

// DrawMultiple draws n cards in order. The deck may reshuffle mid-batch.
func (d *Deck) DrawMultiple(n int) []models.Card {
	cards := make([]models.Card, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, d.Draw())
	}
	return cards
}

// Remaining returns the number of undrawn cards.
func (d *Deck) Remaining() int {
	return len(d.order) - d.next
}

// Reshuffles returns how many times the deck has regenerated after exhaustion.
func (d *Deck) Reshuffles() int {
	return d.reshuffles
}
