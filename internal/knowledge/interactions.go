package knowledge

import (
	"strings"

	"github.com/clinical-reasoning-server/internal/domain"
)

// PairKey identifies an unordered medication pair. MakePairKey
// normalizes names and sorts them so (a,b) and (b,a) collide.
type PairKey struct {
	First  string
	Second string
}

// MakePairKey builds a canonical key for two medication names.
func MakePairKey(a, b string) PairKey {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a > b {
		a, b = b, a
	}
	return PairKey{First: a, Second: b}
}

// Interaction describes a known drug-drug interaction.
type Interaction struct {
	Message  string
	Severity domain.AlertSeverity
}

// InteractionTable looks up known interactions by medication pair.
type InteractionTable struct {
	pairs map[PairKey]Interaction
}

// NewInteractionTable returns an empty table.
func NewInteractionTable() *InteractionTable {
	return &InteractionTable{pairs: make(map[PairKey]Interaction)}
}

// Add registers an interaction for the unordered pair.
func (t *InteractionTable) Add(a, b string, inter Interaction) {
	t.pairs[MakePairKey(a, b)] = inter
}

// Lookup returns the interaction for the pair in either order.
func (t *InteractionTable) Lookup(a, b string) (Interaction, bool) {
	inter, ok := t.pairs[MakePairKey(a, b)]
	return inter, ok
}

// DefaultInteractionTable builds the bundled interaction pairs.
func DefaultInteractionTable() *InteractionTable {
	t := NewInteractionTable()
	t.Add("warfarin", "aspirin", Interaction{
		Message:  "Increased bleeding risk. Avoid combination or monitor INR closely.",
		Severity: domain.SeverityCritical,
	})
	t.Add("lisinopril", "potassium", Interaction{
		Message:  "Risk of hyperkalemia. Monitor serum potassium.",
		Severity: domain.SeverityWarning,
	})
	t.Add("metformin", "contrast dye", Interaction{
		Message:  "Risk of lactic acidosis with iodinated contrast. Hold metformin 48 hours around imaging.",
		Severity: domain.SeverityWarning,
	})
	t.Add("warfarin", "ibuprofen", Interaction{
		Message:  "NSAID increases bleeding risk on anticoagulation. Prefer acetaminophen.",
		Severity: domain.SeverityCritical,
	})
	t.Add("diazepam", "hydrocodone", Interaction{
		Message:  "Combined CNS depression. Avoid concurrent benzodiazepine and opioid use.",
		Severity: domain.SeverityCritical,
	})
	return t
}
