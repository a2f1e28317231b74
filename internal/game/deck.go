package game

import (
	"math"
	"strconv"
	"strings"
)

const (
	CoffeeCard   = "☕"
	QuestionCard = "?"
)

type Card struct {
	Value string `json:"value"`
	File  string `json:"file"`
}

var deck = []Card{
	{Value: "1", File: "cartes_1.svg"},
	{Value: "2", File: "cartes_2.svg"},
	{Value: "3", File: "cartes_3.svg"},
	{Value: "5", File: "cartes_5.svg"},
	{Value: "8", File: "cartes_8.svg"},
	{Value: "13", File: "cartes_13.svg"},
	{Value: CoffeeCard, File: "cartes_cafe.svg"},
	{Value: QuestionCard, File: "cartes_interro.svg"},
}

var avatarSeeds = []string{
	"astronaut", "ninja", "pirate", "wizard",
	"gamer", "robot", "detective", "viking",
}

// Deck returns a copy of the card deck in display order.
func Deck() []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	return out
}

// AvatarSeeds returns the selectable avatar seeds.
func AvatarSeeds() []string {
	out := make([]string, len(avatarSeeds))
	copy(out, avatarSeeds)
	return out
}

// allVoted is true when no vote is missing. An empty table counts as all voted.
func allVoted(votes []*string) bool {
	for _, v := range votes {
		if v == nil {
			return false
		}
	}
	return true
}

func allCoffee(votes []*string) bool {
	if len(votes) == 0 {
		return false
	}
	for _, v := range votes {
		if v == nil || *v != CoffeeCard {
			return false
		}
	}
	return true
}

// unanimity compares the meaningful votes only: missing, "?" and coffee votes are ignored.
func unanimity(votes []*string) (bool, *string) {
	var first *string
	for _, v := range votes {
		if v == nil || *v == QuestionCard || *v == CoffeeCard {
			continue
		}
		if first == nil {
			first = v
			continue
		}
		if *v != *first {
			return false, nil
		}
	}
	if first == nil {
		return false, nil
	}
	return true, strPtr(*first)
}

// averageResult is the fallback outcome when the organizer supplies none: the mean
// of numeric votes rounded half to even, or nil when nothing numeric was cast or
// every remaining vote asks for a coffee break.
func averageResult(votes []*string) any {
	remaining := make([]string, 0, len(votes))
	for _, v := range votes {
		if v == nil || *v == QuestionCard {
			continue
		}
		remaining = append(remaining, *v)
	}
	if len(remaining) == 0 {
		return nil
	}
	coffee := true
	for _, v := range remaining {
		if v != CoffeeCard {
			coffee = false
			break
		}
	}
	if coffee {
		return nil
	}

	var sum float64
	n := 0
	for _, v := range remaining {
		if v == CoffeeCard {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return nil
	}
	return math.RoundToEven(sum / float64(n))
}
