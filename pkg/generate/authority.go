package generate

import (
	"strings"

	"github.com/cpunion/reply-bot/pkg/intent"
)

// expertTerms are ordered by how specific they are; the first found keys the
// reply.
var expertTerms = []struct {
	term  string
	reply string
}{
	{"subgrade", "Subgrades tell the real story. A weak one there usually caps the overall."},
	{"pop report", "Pop report context matters a lot here. Low pop changes the whole conversation."},
	{"print line", "Print lines are so common on this era. Graders have been inconsistent about them."},
	{"holo bleed", "Holo bleed is a fun error. Collectors pay up for the clean examples."},
	{"shadowless", "Shadowless copies are a different tier. Condition matters even more there."},
	{"first edition", "First edition stamps change everything. Check the stamp quality closely."},
	{"1st edition", "First edition stamps change everything. Check the stamp quality closely."},
	{"error card", "Error cards are a niche of their own. Documentation helps a lot at sale time."},
	{"centering", "Centering is usually the first thing graders knock. Front and back both count."},
	{"surface", "Surface is the silent killer on modern. Light scratches show up under the lamp."},
	{"edges", "Edge wear shows up fast on dark borders. Worth a close look before submitting."},
	{"corners", "Corners look sharp, but a loupe tells the truth before you submit."},
	{"gem mint", "Gem mint is a high bar on this set. Surface and centering both have to line up."},
	{"black label", "Black labels are rare for a reason. Every subgrade has to be perfect."},
	{"psa", "PSA has been strict on centering lately. Worth checking before sending."},
	{"bgs", "BGS subgrades make the grade make sense. Curious what they give this one."},
	{"cgc", "CGC has been more consistent lately. Their slabs look great too."},
}

// MinExpertTerms is how many distinct terms make text expert-level.
const MinExpertTerms = 2

// Authority writes knowledgeable grading and collecting commentary.
type Authority struct{}

// IsExpertLevel reports whether text uses enough domain vocabulary.
func (Authority) IsExpertLevel(text string) bool {
	return len(foundTerms(text)) >= MinExpertTerms
}

// Generate returns a reply for expert-level text, or "".
func (a Authority) Generate(text string, hasImages bool) string {
	found := foundTerms(text)
	if len(found) < MinExpertTerms {
		return ""
	}
	reply := found[0]
	if hasImages {
		reply += " From the photos it looks promising."
	}
	return reply
}

func foundTerms(text string) []string {
	padded := " " + intent.Normalize(text) + " "
	var out []string
	seen := map[string]bool{}
	for _, t := range expertTerms {
		if !containsWord(padded, t.term) || seen[t.reply] {
			continue
		}
		seen[t.reply] = true
		out = append(out, t.reply)
	}
	return out
}

// containsWord matches a phrase on word boundaries, allowing a plural "s".
func containsWord(padded, phrase string) bool {
	return strings.Contains(padded, " "+phrase+" ") || strings.Contains(padded, " "+phrase+"s ")
}
