// ABOUTME: Perk catalog and benefit types for the progression engine
// ABOUTME: Sixteen fixed perks across physical, mental, spiritual and hybrid categories

package progression

// Category groups perks for display.
type Category string

const (
	Physical  Category = "PHYSICAL"
	Mental    Category = "MENTAL"
	Spiritual Category = "SPIRITUAL"
	Hybrid    Category = "HYBRID"
)

// Categories lists every category in display order.
var Categories = []Category{Physical, Mental, Spiritual, Hybrid}

// Benefit names one effect a perk can grant.
type Benefit string

const (
	WorkoutXP        Benefit = "workoutXP"
	MeditationXP     Benefit = "meditationXP"
	CodeXP           Benefit = "codeXP"
	AllXP            Benefit = "allXP"
	CardioMode       Benefit = "cardioMode"
	FocusBonus       Benefit = "focusBonus"
	WorkoutDuration  Benefit = "workoutDuration"
	LanguageMode     Benefit = "languageMode"
	ReadingMode      Benefit = "readingMode"
	PlanningBonus    Benefit = "planningBonus"
	EarlyRiseBonus   Benefit = "earlyRiseBonus"
	StreakProtection Benefit = "streakProtection"
	WillBonus        Benefit = "willBonus"
	ScienceMode      Benefit = "scienceMode"
	QualityBonus     Benefit = "qualityBonus"
	PhysicalBonus    Benefit = "physicalBonus"
)

// BenefitKind says how a benefit's value is interpreted.
type BenefitKind int

const (
	// Multiplier values stack multiplicatively.
	Multiplier BenefitKind = iota
	// Flag benefits are on or off; Value is ignored.
	Flag
	// Amount values are summed.
	Amount
)

func (k BenefitKind) String() string {
	switch k {
	case Flag:
		return "flag"
	case Amount:
		return "amount"
	default:
		return "multiplier"
	}
}

// Effect is one benefit granted by a perk.
type Effect struct {
	Benefit Benefit
	Kind    BenefitKind
	Value   float64
}

// Requirement is a minimum stat level.
type Requirement struct {
	Stat  Stat
	Level int
}

// Perk is an unlockable modifier.
type Perk struct {
	ID           string
	Name         string
	Category     Category
	Icon         string
	Description  string
	Requirements []Requirement
	Effects      []Effect
}

func mult(b Benefit, v float64) Effect { return Effect{Benefit: b, Kind: Multiplier, Value: v} }
func flag(b Benefit) Effect            { return Effect{Benefit: b, Kind: Flag, Value: 1} }
func amount(b Benefit, v float64) Effect {
	return Effect{Benefit: b, Kind: Amount, Value: v}
}

// DefaultCatalog returns the built-in perk table in display order.
func DefaultCatalog() []Perk {
	return []Perk{
		// Physical
		{
			ID: "ironBody", Name: "Iron Body", Category: Physical, Icon: "💪",
			Description:  "Your body is a temple. +50% XP for workouts.",
			Requirements: []Requirement{{STR, 5}},
			Effects:      []Effect{mult(WorkoutXP, 1.5)},
		},
		{
			ID: "sprinter", Name: "Sprinter", Category: Physical, Icon: "🏃",
			Description:  "Speed is life. Unlocks cardio mode.",
			Requirements: []Requirement{{STR, 3}},
			Effects:      []Effect{flag(CardioMode)},
		},
		{
			ID: "eagleEye", Name: "Eagle Eye", Category: Physical, Icon: "🎯",
			Description:  "Nothing escapes your gaze. +25% focus.",
			Requirements: []Requirement{{PER, 5}},
			Effects:      []Effect{mult(FocusBonus, 1.25)},
		},
		{
			ID: "endurance", Name: "Endurance", Category: Physical, Icon: "⚡",
			Description:  "You go further than others. +30% workout duration.",
			Requirements: []Requirement{{STR, 7}, {PER, 3}},
			Effects:      []Effect{mult(WorkoutDuration, 1.3)},
		},

		// Mental
		{
			ID: "polyglot", Name: "Polyglot", Category: Mental, Icon: "🗣️",
			Description:  "Languages come easily. Unlocks the language module.",
			Requirements: []Requirement{{INT, 7}},
			Effects:      []Effect{flag(LanguageMode)},
		},
		{
			ID: "hacker", Name: "Hacker", Category: Mental, Icon: "💻",
			Description:  "Code is your language. +50% XP for code entries.",
			Requirements: []Requirement{{INT, 5}},
			Effects:      []Effect{mult(CodeXP, 1.5)},
		},
		{
			ID: "bookworm", Name: "Bookworm", Category: Mental, Icon: "📚",
			Description:  "Knowledge is power. Unlocks the reading journal.",
			Requirements: []Requirement{{INT, 3}},
			Effects:      []Effect{flag(ReadingMode)},
		},
		{
			ID: "strategist", Name: "Strategist", Category: Mental, Icon: "🎲",
			Description:  "You see ten moves ahead. +20% planning efficiency.",
			Requirements: []Requirement{{INT, 8}, {PER, 5}},
			Effects:      []Effect{mult(PlanningBonus, 1.2)},
		},

		// Spiritual
		{
			ID: "zenMaster", Name: "Zen Master", Category: Spiritual, Icon: "🧘",
			Description:  "Inner calm is your strength. Double meditation XP.",
			Requirements: []Requirement{{WIL, 7}},
			Effects:      []Effect{mult(MeditationXP, 2.0)},
		},
		{
			ID: "earlyBird", Name: "Early Bird", Category: Spiritual, Icon: "🌅",
			Description:  "The morning starts with you. +10 XP for rising before 6:00.",
			Requirements: []Requirement{{WIL, 5}},
			Effects:      []Effect{amount(EarlyRiseBonus, 10)},
		},
		{
			ID: "unbreakable", Name: "Unbreakable", Category: Spiritual, Icon: "⛓️",
			Description:  "Setbacks do not break you. Streaks survive one missed day.",
			Requirements: []Requirement{{WIL, 3}},
			Effects:      []Effect{amount(StreakProtection, 1)},
		},
		{
			ID: "discipline", Name: "Iron Discipline", Category: Spiritual, Icon: "🎯",
			Description:  "Discipline above all. +30% willpower.",
			Requirements: []Requirement{{WIL, 8}},
			Effects:      []Effect{mult(WillBonus, 1.3)},
		},

		// Hybrid
		{
			ID: "warrior", Name: "Warrior", Category: Hybrid, Icon: "⚔️",
			Description:  "Body and mind in harmony. +25% to all XP.",
			Requirements: []Requirement{{STR, 7}, {WIL, 7}},
			Effects:      []Effect{mult(AllXP, 1.25)},
		},
		{
			ID: "scholar", Name: "Scholar", Category: Hybrid, Icon: "🔬",
			Description:  "Knowledge through discipline. Unlocks the science journal.",
			Requirements: []Requirement{{INT, 7}, {WIL, 5}},
			Effects:      []Effect{flag(ScienceMode)},
		},
		{
			ID: "perfectionist", Name: "Perfectionist", Category: Hybrid, Icon: "✨",
			Description:  "Perfection in every detail. +50% quality of all actions.",
			Requirements: []Requirement{{INT, 8}, {PER, 8}, {WIL, 8}},
			Effects:      []Effect{mult(QualityBonus, 1.5)},
		},
		{
			ID: "gladiator", Name: "Gladiator", Category: Hybrid, Icon: "🏛️",
			Description:  "Strength and agility in battle. +35% physical attributes.",
			Requirements: []Requirement{{STR, 6}, {PER, 6}},
			Effects:      []Effect{mult(PhysicalBonus, 1.35)},
		},
	}
}
