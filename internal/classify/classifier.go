// Package classify maps free-text job titles onto the fixed sector taxonomy.
package classify

import (
	"strings"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

// Rule pairs a keyword set with the sector assigned when any keyword appears
// in the title. Membership is case-insensitive substring matching.
type Rule struct {
	Keywords []string
	Sector   pulse.Sector
}

// Rules is the ordered classification table. Evaluation is first-match-wins,
// so order is part of the contract: IT terms are checked before the generic
// office terms, and reordering changes outcomes for titles matching several
// rules (e.g. "impiegato software").
var Rules = []Rule{
	{
		Keywords: []string{"sviluppatore", "developer", "programmatore", "software"},
		Sector:   pulse.SectorIT,
	},
	{
		Keywords: []string{"cameriere", "cuoco", "chef", "pizzaiolo"},
		Sector:   pulse.SectorFood,
	},
	{
		Keywords: []string{"commesso", "venditore", "sales", "cassiere"},
		Sector:   pulse.SectorRetail,
	},
	{
		Keywords: []string{"magazziniere", "logistica", "autista"},
		Sector:   pulse.SectorLogistics,
	},
	{
		Keywords: []string{"impiegato", "amministrativo", "contabile", "segretaria"},
		Sector:   pulse.SectorAdmin,
	},
}

// Classify returns the sector for a job title. It is pure and total: a title
// matching no rule returns pulse.SectorOther, never an empty sector.
func Classify(title string) pulse.Sector {
	lower := strings.ToLower(title)
	for _, rule := range Rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				return rule.Sector
			}
		}
	}
	return pulse.SectorOther
}
