// Package username generates display names for fresh identities.
package username

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{
	"Swift", "Bright", "Calm", "Eager", "Gentle", "Happy", "Jolly", "Kind",
	"Lively", "Nice", "Proud", "Silly", "Witty", "Zesty", "Cool", "Fine",
	"Bold", "Wild",
}

var nouns = []string{
	"Panda", "Tiger", "Eagle", "Lion", "Wolf", "Bear", "Fox", "Hawk",
	"Owl", "Deer", "Rabbit", "Swan", "Dove", "Frog", "Fish", "Whale",
	"Dolphin", "Shark", "Cat", "Dog",
}

// Random returns a name like "SwiftPanda4821": adjective, animal, and a
// four digit number.
func Random() string {
	adj := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	num := 1000 + rand.IntN(9000)
	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
