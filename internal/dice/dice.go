package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// ResultType classifies a roll outcome.
type ResultType string

const (
	ResultNormal          ResultType = "normal"
	ResultCriticalSuccess ResultType = "critical_success"
	ResultCriticalFailure ResultType = "critical_failure"
)

// Result is the outcome of rolling one dice formula.
type Result struct {
	Rolls      []int      `json:"rolls"`
	Total      int        `json:"total"`
	Formula    string     `json:"formula"`
	DiceType   string     `json:"dice_type"`
	ResultType ResultType `json:"result_type"`
	Message    string     `json:"message,omitempty"`
}

// ErrInvalidFormula is returned for anything that does not parse as
// NdS(+/-M), e.g. "2x6" or "d7b".
var ErrInvalidFormula = errors.New("invalid dice formula format")

var formulaPattern = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

var validSides = []int{4, 6, 8, 10, 12, 20, 100}

// maxDice bounds a single roll so a hostile formula cannot ask for an
// absurd allocation.
const maxDice = 100

// Roll parses a formula like "2d6+3", "d20" or "4d10-2" and performs
// the roll. The error, when non-nil, is safe to echo back to the
// requesting client.
func Roll(formula string) (Result, error) {
	count, sides, modifier, err := parseFormula(formula)
	if err != nil {
		return Result{}, err
	}

	rolls := make([]int, count)
	total := modifier
	for i := range rolls {
		rolls[i] = rand.IntN(sides) + 1
		total += rolls[i]
	}

	resultType, message := checkCritical(rolls, sides)

	return Result{
		Rolls:      rolls,
		Total:      total,
		Formula:    formula,
		DiceType:   fmt.Sprintf("d%d", sides),
		ResultType: resultType,
		Message:    message,
	}, nil
}

// parseFormula splits "2d6+3" into count, sides and modifier.
func parseFormula(formula string) (count, sides, modifier int, err error) {
	match := formulaPattern.FindStringSubmatch(strings.ToLower(formula))
	if match == nil {
		return 0, 0, 0, ErrInvalidFormula
	}

	count = 1
	if match[1] != "" {
		count, _ = strconv.Atoi(match[1])
	}
	sides, _ = strconv.Atoi(match[2])
	if match[3] != "" {
		modifier, _ = strconv.Atoi(match[3])
	}

	if !isValidSides(sides) {
		names := make([]string, len(validSides))
		for i, s := range validSides {
			names[i] = fmt.Sprintf("d%d", s)
		}
		return 0, 0, 0, fmt.Errorf("invalid dice type, use: %s", strings.Join(names, ", "))
	}
	if count < 1 || count > maxDice {
		return 0, 0, 0, fmt.Errorf("dice count must be between 1 and %d", maxDice)
	}

	return count, sides, modifier, nil
}

func isValidSides(sides int) bool {
	for _, s := range validSides {
		if s == sides {
			return true
		}
	}
	return false
}

// checkCritical detects critical outcomes: all 20s or all 1s on d20,
// and a natural 100 on the first d100.
func checkCritical(rolls []int, sides int) (ResultType, string) {
	if sides == 20 {
		allMax, allMin := true, true
		for _, r := range rolls {
			if r != 20 {
				allMax = false
			}
			if r != 1 {
				allMin = false
			}
		}
		if allMax {
			return ResultCriticalSuccess, "Critical success!"
		}
		if allMin {
			return ResultCriticalFailure, "Critical failure!"
		}
	}

	if sides == 100 && rolls[0] == 100 {
		return ResultCriticalFailure, "Natural 100!"
	}

	return ResultNormal, ""
}
