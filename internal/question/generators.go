package question

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/victornm/trivia/internal/domain"
)

// ErrNoFacts is returned by a generator when the fact pack has nothing it
// can build a question from.
var ErrNoFacts = errors.New("question: no usable facts")

const (
	spellKeys   = "QWER"
	censored    = "XXXXXXX"
	percentMark = "%"
)

var percentStats = []string{"percent", "spell_vamp", "life_steal", "tenacity", "critical", "attack_speed", "cooldown"}

// Generator builds one question from the fact pack.
type Generator struct {
	Name     string
	Generate func(r *rand.Rand, f *Facts) (domain.Question, error)
}

// DefaultRegistry returns the generators in their fixed, indexable order.
func DefaultRegistry() []Generator {
	return []Generator{
		{Name: "champ_from_spell", Generate: champFromSpell},
		{Name: "spell_from_champ", Generate: spellFromChamp},
		{Name: "champ_from_title", Generate: champFromTitle},
		{Name: "title_from_champ", Generate: titleFromChamp},
		{Name: "champ_from_lore", Generate: champFromLore},
		{Name: "champ_from_quote", Generate: champFromQuote},
		{Name: "champ_from_passive", Generate: champFromPassive},
		{Name: "passive_from_champ", Generate: passiveFromChamp},
		{Name: "summ_cooldown", Generate: summCooldown},
		{Name: "item_buy_gold", Generate: itemBuyGold},
		{Name: "item_stat", Generate: itemStat},
		{Name: "item_from_component", Generate: itemFromComponent},
		{Name: "item_from_components", Generate: itemFromComponents},
	}
}

func pick[T any](r *rand.Rand, s []T, what string) (T, error) {
	var zero T
	if len(s) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrNoFacts, what)
	}

	return s[r.IntN(len(s))], nil
}

func champWithSpells(r *rand.Rand, f *Facts) (Champion, int, error) {
	champs := slices.DeleteFunc(slices.Clone(f.Champions), func(c Champion) bool { return len(c.Spells) == 0 })
	c, err := pick(r, champs, "champions with spells")
	if err != nil {
		return Champion{}, 0, err
	}

	return c, r.IntN(len(c.Spells)), nil
}

func censor(text string, words ...string) string {
	for _, w := range words {
		if w == "" {
			continue
		}
		text = strings.ReplaceAll(text, w, censored)
	}

	return text
}

func removeThe(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(s, "the"); ok {
		return strings.TrimSpace(rest)
	}

	return s
}

func champFromSpell(r *rand.Rand, f *Facts) (domain.Question, error) {
	c, i, err := champWithSpells(r, f)
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:   fmt.Sprintf("Which champion has an ability called '%s'?", c.Spells[i].Name),
		Answers: []string{c.Name},
		Fuzzy:   true,
		Extra:   fmt.Sprintf(" (%c)", spellKeys[i]),
	}, nil
}

func spellFromChamp(r *rand.Rand, f *Facts) (domain.Question, error) {
	c, i, err := champWithSpells(r, f)
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:    fmt.Sprintf("What's the name of %s's %c?", c.Name, spellKeys[i]),
		ImageURL: c.Spells[i].Image,
		Answers:  []string{c.Spells[i].Name},
		Fuzzy:    true,
	}, nil
}

func champFromTitle(r *rand.Rand, f *Facts) (domain.Question, error) {
	champs := slices.DeleteFunc(slices.Clone(f.Champions), func(c Champion) bool { return c.Title == "" })
	c, err := pick(r, champs, "champions with titles")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:   fmt.Sprintf("Which champion is '%s'?", c.Title),
		Answers: []string{c.Name},
		Fuzzy:   true,
	}, nil
}

func titleFromChamp(r *rand.Rand, f *Facts) (domain.Question, error) {
	champs := slices.DeleteFunc(slices.Clone(f.Champions), func(c Champion) bool { return c.Title == "" })
	c, err := pick(r, champs, "champions with titles")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:    fmt.Sprintf("What is %s's title?", c.Name),
		ImageURL: c.Image,
		Answers:  []string{c.Title},
		Fuzzy:    true,
		Modifier: removeThe,
	}, nil
}

func champFromLore(r *rand.Rand, f *Facts) (domain.Question, error) {
	champs := slices.DeleteFunc(slices.Clone(f.Champions), func(c Champion) bool { return c.Lore == "" })
	c, err := pick(r, champs, "champions with lore")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:       "Which champion's lore is this?",
		Description: censor(c.Lore, c.Name),
		Answers:     []string{c.Name},
		Fuzzy:       true,
	}, nil
}

func champFromQuote(r *rand.Rand, f *Facts) (domain.Question, error) {
	champs := slices.DeleteFunc(slices.Clone(f.Champions), func(c Champion) bool { return len(c.Quotes) == 0 })
	c, err := pick(r, champs, "champions with quotes")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:       "Which champion says the following line?",
		Description: c.Quotes[r.IntN(len(c.Quotes))],
		Answers:     []string{c.Name},
		Fuzzy:       true,
	}, nil
}

func champFromPassive(r *rand.Rand, f *Facts) (domain.Question, error) {
	champs := slices.DeleteFunc(slices.Clone(f.Champions), func(c Champion) bool { return c.Passive.Description == "" })
	c, err := pick(r, champs, "champions with passives")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:       "Which champion's passive is this?",
		Description: censor(c.Passive.Description, c.Name),
		Answers:     []string{c.Name},
		Fuzzy:       true,
	}, nil
}

func passiveFromChamp(r *rand.Rand, f *Facts) (domain.Question, error) {
	champs := slices.DeleteFunc(slices.Clone(f.Champions), func(c Champion) bool { return c.Passive.Name == "" })
	c, err := pick(r, champs, "champions with passives")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:    fmt.Sprintf("What is the name of %s's passive?", c.Name),
		ImageURL: c.Image,
		Answers:  []string{c.Passive.Name},
		Fuzzy:    true,
	}, nil
}

func summCooldown(r *rand.Rand, f *Facts) (domain.Question, error) {
	spells := slices.DeleteFunc(slices.Clone(f.SummonerSpells), func(s SummonerSpell) bool { return s.Cooldown == "" })
	s, err := pick(r, spells, "summoner spells with cooldowns")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:    fmt.Sprintf("What's the base cool down of '%s'?", s.Name),
		ImageURL: s.Image,
		Answers:  []string{s.Cooldown},
	}, nil
}

func itemBuyGold(r *rand.Rand, f *Facts) (domain.Question, error) {
	items := slices.DeleteFunc(slices.Clone(f.Items), func(it Item) bool { return it.Gold <= 0 })
	it, err := pick(r, items, "items with a price")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:    fmt.Sprintf("How much is '%s'?", it.Name),
		ImageURL: it.Image,
		Answers:  []string{strconv.Itoa(it.Gold)},
	}, nil
}

func itemStat(r *rand.Rand, f *Facts) (domain.Question, error) {
	items := slices.DeleteFunc(slices.Clone(f.Items), func(it Item) bool { return len(nonZeroStats(it)) == 0 })
	it, err := pick(r, items, "items with stats")
	if err != nil {
		return domain.Question{}, err
	}

	stats := nonZeroStats(it)
	stat := stats[r.IntN(len(stats))]
	val, suffix := it.Stats[stat], ""
	if isPercentStat(stat) {
		val, suffix = val*100, percentMark
	}

	label := strings.ReplaceAll(strings.ReplaceAll(stat, "_", " "), "percent", percentMark)

	return domain.Question{
		Title:    fmt.Sprintf("How much **%s** does '%s' give?", label, it.Name),
		ImageURL: it.Image,
		Answers:  []string{fmt.Sprintf("%.0f%s", val, suffix)},
		Fuzzy:    true,
		Modifier: func(s string) string { return strings.Trim(s, percentMark) },
	}, nil
}

func nonZeroStats(it Item) []string {
	var stats []string
	for k, v := range it.Stats {
		if v != 0 {
			stats = append(stats, k)
		}
	}
	sort.Strings(stats)

	return stats
}

func isPercentStat(stat string) bool {
	for _, p := range percentStats {
		if strings.Contains(stat, p) {
			return true
		}
	}

	return false
}

func itemFromComponent(r *rand.Rand, f *Facts) (domain.Question, error) {
	intoByName := make(map[string][]string)
	var components []string
	for _, it := range f.Items {
		for _, c := range it.BuildsFrom {
			if len(intoByName[c]) == 0 {
				components = append(components, c)
			}
			if !slices.Contains(intoByName[c], it.Name) {
				intoByName[c] = append(intoByName[c], it.Name)
			}
		}
	}

	c, err := pick(r, components, "items that build into others")
	if err != nil {
		return domain.Question{}, err
	}

	return domain.Question{
		Title:       "What is one item this builds into?",
		Description: c,
		Answers:     intoByName[c],
		Fuzzy:       true,
	}, nil
}

func itemFromComponents(r *rand.Rand, f *Facts) (domain.Question, error) {
	items := slices.DeleteFunc(slices.Clone(f.Items), func(it Item) bool { return len(it.BuildsFrom) < 2 })
	it, err := pick(r, items, "items with several components")
	if err != nil {
		return domain.Question{}, err
	}

	want := countComponents(it.BuildsFrom)
	var answers []string
	for _, other := range items {
		if equalCounts(countComponents(other.BuildsFrom), want) {
			answers = append(answers, other.Name)
		}
	}

	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("- %s x %d", name, want[name]))
	}

	return domain.Question{
		Title:       "What is one item that builds from these items?",
		Description: strings.Join(lines, "\n"),
		Answers:     answers,
		Fuzzy:       true,
	}, nil
}

func countComponents(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for _, n := range names {
		m[n]++
	}

	return m
}

func equalCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}

	return true
}
