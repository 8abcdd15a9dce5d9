package transcript

import (
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

var (
	gameSeparator = regexp.MustCompile(`\n\s*\n`)
	headerPattern = regexp.MustCompile(`^\[(\w+)\s+"(.+)"\]`)
	moveNumber    = regexp.MustCompile(`\d+\.`)

	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Game is one recorded game: its tag pairs and its move tokens in play order.
// Tokens are kept raw; decoding happens when the game is replayed.
type Game struct {
	Headers map[string]string `json:"headers"`
	Moves   []string          `json:"moves"`
}

// Header returns the value recorded for tag.
func (g Game) Header(tag string) (string, bool) {
	v, ok := g.Headers[tag]
	return v, ok
}

// SortedTags returns the header tags in lexical order.
func (g Game) SortedTags() []string {
	tags := make([]string, 0, len(g.Headers))
	for tag := range g.Headers {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Parse splits raw transcript text into games. Games are separated by one or
// more blank lines. Lines starting with '[' are tag pairs of the form
// [Tag "Value"]; ones that do not match are dropped. Every other line is move
// text: move numbers such as "12." are removed and the rest is split on
// whitespace. CRLF and lone CR count as line breaks. Parse never fails; a
// malformed block just yields a game with fewer headers or moves, and text
// with nothing but whitespace yields no games.
func Parse(raw string) []Game {
	raw = lineEndings.Replace(raw)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	blocks := gameSeparator.Split(raw, -1)
	games := make([]Game, 0, len(blocks))
	for _, block := range blocks {
		games = append(games, parseBlock(block))
	}
	return games
}

func parseBlock(block string) Game {
	game := Game{
		Headers: make(map[string]string),
		Moves:   []string{},
	}

	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, "[") {
			if m := headerPattern.FindStringSubmatch(line); m != nil {
				game.Headers[m[1]] = m[2]
			}
			continue
		}

		line = moveNumber.ReplaceAllString(line, "")
		game.Moves = append(game.Moves, strings.Fields(line)...)
	}

	return game
}
