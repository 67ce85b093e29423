package chat

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

const (
	maxDice  = 100
	maxSides = 1000
)

var diceRe = regexp.MustCompile(`^(\d*)d(\d+)(?:([+-])(\d+))?$`)

// Dice is a parsed NdM+K expression.
type Dice struct {
	Count    int
	Sides    int
	Modifier int
}

// RollResult is one evaluation of a Dice expression.
type RollResult struct {
	Dice  Dice
	Rolls []int
	Total int
}

// roller returns a value in [1, sides].
type roller func(sides int) int

func defaultRoller(sides int) int {
	return rand.IntN(sides) + 1
}

// ParseRoll parses expressions like "d20", "2d6" and "3d8+2".
func ParseRoll(expr string) (Dice, error) {
	expr = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(expr), " ", ""))
	if expr == "" {
		return Dice{}, fmt.Errorf("usage: /roll NdM[+K]")
	}
	match := diceRe.FindStringSubmatch(expr)
	if match == nil {
		return Dice{}, fmt.Errorf("invalid dice expression %q", expr)
	}
	d := Dice{Count: 1}
	if match[1] != "" {
		d.Count, _ = strconv.Atoi(match[1])
	}
	d.Sides, _ = strconv.Atoi(match[2])
	if match[4] != "" {
		d.Modifier, _ = strconv.Atoi(match[4])
		if match[3] == "-" {
			d.Modifier = -d.Modifier
		}
	}
	if d.Count < 1 || d.Count > maxDice {
		return Dice{}, fmt.Errorf("dice count must be between 1 and %d", maxDice)
	}
	if d.Sides < 2 || d.Sides > maxSides {
		return Dice{}, fmt.Errorf("dice sides must be between 2 and %d", maxSides)
	}
	return d, nil
}

func (d Dice) String() string {
	s := fmt.Sprintf("%dd%d", d.Count, d.Sides)
	switch {
	case d.Modifier > 0:
		s += fmt.Sprintf("+%d", d.Modifier)
	case d.Modifier < 0:
		s += fmt.Sprintf("%d", d.Modifier)
	}
	return s
}

// Roll evaluates the expression. A nil roller rolls randomly.
func (d Dice) Roll(r roller) RollResult {
	if r == nil {
		r = defaultRoller
	}
	res := RollResult{Dice: d, Rolls: make([]int, d.Count), Total: d.Modifier}
	for i := range res.Rolls {
		res.Rolls[i] = r(d.Sides)
		res.Total += res.Rolls[i]
	}
	return res
}

// String renders "2d6+1: [3 5] = 9".
func (r RollResult) String() string {
	rolls := make([]string, len(r.Rolls))
	for i, v := range r.Rolls {
		rolls[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("%s: [%s] = %d", r.Dice, strings.Join(rolls, " "), r.Total)
}
