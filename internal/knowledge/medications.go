package knowledge

import (
	"strings"
)

// MedicationInfo is the registry record for one medication.
type MedicationInfo struct {
	GenericName     string
	BrandNames      []string
	Strengths       []string
	Form            string
	RxNormCode      string
	DEASchedule     string // empty when not controlled
	PediatricSafe   bool
	HighRiskElderly bool
	// BrandOnly marks medications with no generic equivalent; these
	// are dispensed as brand and priced accordingly.
	BrandOnly bool
}

// Controlled reports whether the medication carries a DEA schedule.
func (m MedicationInfo) Controlled() bool {
	return m.DEASchedule != ""
}

// MedicationRegistry indexes medications by generic and brand name,
// case-insensitively.
type MedicationRegistry struct {
	byName map[string]MedicationInfo
}

// NewMedicationRegistry builds a registry from the given records.
func NewMedicationRegistry(meds []MedicationInfo) *MedicationRegistry {
	r := &MedicationRegistry{byName: make(map[string]MedicationInfo)}
	for _, m := range meds {
		r.byName[strings.ToLower(m.GenericName)] = m
		for _, brand := range m.BrandNames {
			r.byName[strings.ToLower(brand)] = m
		}
	}
	return r
}

// Lookup resolves a medication name (generic or brand) to its record.
func (r *MedicationRegistry) Lookup(name string) (MedicationInfo, bool) {
	m, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// DefaultMedicationRegistry builds the bundled medication registry.
func DefaultMedicationRegistry() *MedicationRegistry {
	return NewMedicationRegistry([]MedicationInfo{
		{
			GenericName: "lisinopril",
			BrandNames:  []string{"Prinivil", "Zestril"},
			Strengths:   []string{"5mg", "10mg", "20mg", "40mg"},
			Form:        "tablet",
			RxNormCode:  "29046",
		},
		{
			GenericName: "metformin",
			BrandNames:  []string{"Glucophage"},
			Strengths:   []string{"500mg", "850mg", "1000mg"},
			Form:        "tablet",
			RxNormCode:  "6809",
		},
		{
			GenericName:   "acetaminophen",
			BrandNames:    []string{"Tylenol"},
			Strengths:     []string{"325mg", "500mg", "650mg"},
			Form:          "tablet",
			RxNormCode:    "161",
			PediatricSafe: true,
		},
		{
			GenericName:   "ibuprofen",
			BrandNames:    []string{"Advil", "Motrin"},
			Strengths:     []string{"200mg", "400mg", "600mg", "800mg"},
			Form:          "tablet",
			RxNormCode:    "5640",
			PediatricSafe: true,
		},
		{
			GenericName:   "amoxicillin",
			BrandNames:    []string{"Amoxil"},
			Strengths:     []string{"250mg", "500mg", "875mg"},
			Form:          "capsule",
			RxNormCode:    "723",
			PediatricSafe: true,
		},
		{
			GenericName: "atorvastatin",
			BrandNames:  []string{"Lipitor"},
			Strengths:   []string{"10mg", "20mg", "40mg", "80mg"},
			Form:        "tablet",
			RxNormCode:  "83367",
		},
		{
			GenericName: "omeprazole",
			BrandNames:  []string{"Prilosec"},
			Strengths:   []string{"10mg", "20mg", "40mg"},
			Form:        "capsule",
			RxNormCode:  "7646",
		},
		{
			GenericName: "hydrocodone",
			BrandNames:  []string{"Vicodin", "Norco"},
			Strengths:   []string{"5mg", "7.5mg", "10mg"},
			Form:        "tablet",
			RxNormCode:  "5489",
			DEASchedule: "CII",
		},
		{
			GenericName:   "azithromycin",
			BrandNames:    []string{"Zithromax"},
			Strengths:     []string{"250mg", "500mg"},
			Form:          "tablet",
			RxNormCode:    "18631",
			PediatricSafe: true,
		},
		{
			GenericName:   "albuterol",
			BrandNames:    []string{"ProAir", "Ventolin"},
			Strengths:     []string{"90mcg"},
			Form:          "inhaler",
			RxNormCode:    "435",
			PediatricSafe: true,
		},
		{
			GenericName: "ferrous sulfate",
			Strengths:   []string{"325mg"},
			Form:        "tablet",
			RxNormCode:  "310325",
		},
		{
			GenericName: "insulin glargine",
			BrandNames:  []string{"Lantus", "Toujeo"},
			Strengths:   []string{"100units"},
			Form:        "injection",
			RxNormCode:  "274783",
			BrandOnly:   true,
		},
		{
			GenericName:     "diphenhydramine",
			BrandNames:      []string{"Benadryl"},
			Strengths:       []string{"25mg", "50mg"},
			Form:            "tablet",
			RxNormCode:      "3498",
			HighRiskElderly: true,
		},
		{
			GenericName:     "diazepam",
			BrandNames:      []string{"Valium"},
			Strengths:       []string{"2mg", "5mg", "10mg"},
			Form:            "tablet",
			RxNormCode:      "3322",
			DEASchedule:     "CIV",
			HighRiskElderly: true,
		},
		{
			GenericName:     "amitriptyline",
			BrandNames:      []string{"Elavil"},
			Strengths:       []string{"10mg", "25mg", "50mg"},
			Form:            "tablet",
			RxNormCode:      "704",
			HighRiskElderly: true,
		},
		{
			GenericName:     "meperidine",
			BrandNames:      []string{"Demerol"},
			Strengths:       []string{"50mg", "100mg"},
			Form:            "tablet",
			RxNormCode:      "6754",
			DEASchedule:     "CII",
			HighRiskElderly: true,
		},
		{
			GenericName:     "propoxyphene",
			BrandNames:      []string{"Darvon"},
			Strengths:       []string{"65mg"},
			Form:            "capsule",
			RxNormCode:      "8785",
			DEASchedule:     "CIV",
			HighRiskElderly: true,
		},
	})
}
