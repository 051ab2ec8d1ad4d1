package ai

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed config/*.json
var embeddedConfigs embed.FS

// Library holds the compiled agent profiles and the capability catalog. It
// is loaded once at startup; malformed embedded config is a programmer error
// and panics via MustLoadLibrary.
type Library struct {
	profiles map[string]*Profile
	catalog  StaticCatalog
	warnings []string
}

// Profile is the compiled per-agent tuning derived from the authored JSON.
type Profile struct {
	ID       string
	Memory   MemoryConfig
	Search   SearchConfig
	Triggers TriggerTuning
	Arbiter  ArbiterConfig

	PlannerMaxNodes int

	MoveSpeed    float64
	ArriveRadius float64
	VisionRange  float64
	MeleeRange   float64

	RetreatHealthFrac float64
	SafeDistance      float64
	SuppressedSeconds float64
	CoverHoldSeconds  float64
	FlankOffset       float64
	StallSeconds      float64
	StuckEpsilon      float64
}

// Authoring structures mirror the JSON written by designers. The jsonschema
// tags feed the schema generator under cmd/schema.
type authoringFile struct {
	Capabilities []authoringCapability `json:"capabilities" jsonschema:"description=Area-attack capability descriptors"`
	Profiles     []authoringProfile    `json:"profiles" jsonschema:"description=Agent behavior profiles"`
}

type authoringCapability struct {
	ID              string  `json:"id" jsonschema:"title=Capability id,pattern=^[a-z0-9\\-]+$"`
	Name            string  `json:"name"`
	EffectRadius    float64 `json:"effect_radius" jsonschema:"description=Harm radius of the area attack"`
	ThrowRange      float64 `json:"throw_range" jsonschema:"description=Maximum throw distance"`
	CooldownSeconds float64 `json:"cooldown_seconds"`
	Charges         int     `json:"charges"`
}

type authoringProfile struct {
	ID      string            `json:"id" jsonschema:"title=Profile id,pattern=^[a-z0-9\\-]+$"`
	Memory  authoringMemory   `json:"memory"`
	Search  authoringSearch   `json:"search"`
	Attack  authoringAttack   `json:"attack"`
	Planner authoringPlanner  `json:"planner"`
	Move    authoringMovement `json:"movement"`
	Nerve   authoringNerve    `json:"nerve"`
}

type authoringMemory struct {
	DecayRate               float64 `json:"decay_rate"`
	OverrideCooldownSeconds float64 `json:"override_cooldown_seconds"`
	HighThreshold           float64 `json:"high_threshold"`
	MediumThreshold         float64 `json:"medium_threshold"`
	LowThreshold            float64 `json:"low_threshold"`
	LostThreshold           float64 `json:"lost_threshold"`
	PropagationFactor       float64 `json:"propagation_factor"`
	ShareRangeVisual        float64 `json:"share_range_visual"`
	ShareRangeRadio         float64 `json:"share_range_radio"`
}

type authoringSearch struct {
	LegLength       float64 `json:"leg_length"`
	LegExpansion    float64 `json:"leg_expansion"`
	ExpandEveryLegs int     `json:"expand_every_legs" jsonschema:"description=Legs completed between spiral expansions"`
	SampleSpacing   float64 `json:"sample_spacing"`
	ZoneSize        float64 `json:"zone_size" jsonschema:"description=Visited-zone grid cell edge in world units"`
	SnapTolerance   float64 `json:"snap_tolerance"`
	MaxRadius       float64 `json:"max_radius"`
	TimeoutSeconds  float64 `json:"timeout_seconds"`
	ScanSeconds     float64 `json:"scan_seconds"`
}

type authoringAttack struct {
	Capability      string             `json:"capability"`
	SafetyMargin    float64            `json:"safety_margin"`
	CooldownSeconds float64            `json:"cooldown_seconds"`
	Triggers        []authoringTrigger `json:"triggers"`
}

type authoringTrigger struct {
	ID         string  `json:"id"`
	Cost       float64 `json:"cost" jsonschema:"description=Ascending evaluation order; lower fires first"`
	Seconds    float64 `json:"seconds,omitempty"`
	Radius     float64 `json:"radius,omitempty"`
	MinLosses  float64 `json:"min_losses,omitempty"`
	HealthFrac float64 `json:"health_frac,omitempty"`
}

type authoringPlanner struct {
	MaxExpandedNodes int `json:"max_expanded_nodes"`
}

type authoringMovement struct {
	Speed        float64 `json:"speed"`
	ArriveRadius float64 `json:"arrive_radius"`
	VisionRange  float64 `json:"vision_range"`
	MeleeRange   float64 `json:"melee_range"`
}

type authoringNerve struct {
	RetreatHealthFrac float64 `json:"retreat_health_frac"`
	SafeDistance      float64 `json:"safe_distance"`
	SuppressedSeconds float64 `json:"suppressed_seconds"`
	CoverHoldSeconds  float64 `json:"cover_hold_seconds"`
	FlankOffset       float64 `json:"flank_offset"`
	StallSeconds      float64 `json:"stall_seconds"`
	StuckEpsilon      float64 `json:"stuck_epsilon"`
}

// MustLoadLibrary loads the embedded config or panics.
func MustLoadLibrary() *Library {
	lib, err := LoadLibrary()
	if err != nil {
		panic(err)
	}
	return lib
}

// LoadLibrary parses and compiles every embedded config file.
func LoadLibrary() (*Library, error) {
	data, err := embeddedConfigs.ReadFile("config/agents.json")
	if err != nil {
		return nil, fmt.Errorf("read agent config: %w", err)
	}
	var authored authoringFile
	if err := json.Unmarshal(data, &authored); err != nil {
		return nil, fmt.Errorf("parse agent config: %w", err)
	}
	return compileLibrary(authored)
}

func compileLibrary(authored authoringFile) (*Library, error) {
	lib := &Library{
		profiles: make(map[string]*Profile),
		catalog:  make(StaticCatalog),
	}

	for _, cap := range authored.Capabilities {
		if cap.ID == "" {
			return nil, fmt.Errorf("capability missing id")
		}
		if cap.EffectRadius <= 0 {
			return nil, fmt.Errorf("capability %s: effect_radius must be positive", cap.ID)
		}
		id := CapabilityID(cap.ID)
		if _, exists := lib.catalog[id]; exists {
			return nil, fmt.Errorf("duplicate capability %s", cap.ID)
		}
		lib.catalog[id] = CapabilityDescriptor{
			ID:           id,
			Name:         cap.Name,
			EffectRadius: cap.EffectRadius,
			ThrowRange:   cap.ThrowRange,
			Cooldown:     cap.CooldownSeconds,
			Charges:      cap.Charges,
		}
	}

	if len(authored.Profiles) == 0 {
		return nil, fmt.Errorf("agent config must define at least one profile")
	}
	for _, ap := range authored.Profiles {
		profile, err := compileProfile(ap, lib.catalog)
		if err != nil {
			return nil, err
		}
		if _, exists := lib.profiles[profile.ID]; exists {
			return nil, fmt.Errorf("duplicate profile %s", profile.ID)
		}
		lib.profiles[profile.ID] = profile
		lib.warnings = append(lib.warnings, validateProfile(profile, lib.catalog)...)
	}

	return lib, nil
}

func compileProfile(ap authoringProfile, catalog StaticCatalog) (*Profile, error) {
	if ap.ID == "" {
		return nil, fmt.Errorf("profile missing id")
	}

	memory := DefaultMemoryConfig()
	if ap.Memory.DecayRate > 0 {
		memory.DecayRate = ap.Memory.DecayRate
	}
	if ap.Memory.OverrideCooldownSeconds > 0 {
		memory.OverrideCooldown = secondsToDuration(ap.Memory.OverrideCooldownSeconds)
	}
	if ap.Memory.HighThreshold > 0 {
		memory.HighThreshold = ap.Memory.HighThreshold
	}
	if ap.Memory.MediumThreshold > 0 {
		memory.MediumThreshold = ap.Memory.MediumThreshold
	}
	if ap.Memory.LowThreshold > 0 {
		memory.LowThreshold = ap.Memory.LowThreshold
	}
	if ap.Memory.LostThreshold > 0 {
		memory.LostThreshold = ap.Memory.LostThreshold
	}
	if ap.Memory.PropagationFactor > 0 {
		memory.PropagationFactor = ap.Memory.PropagationFactor
	}
	if ap.Memory.ShareRangeVisual > 0 {
		memory.ShareRangeVisual = ap.Memory.ShareRangeVisual
	}
	if ap.Memory.ShareRangeRadio > 0 {
		memory.ShareRangeRadio = ap.Memory.ShareRangeRadio
	}

	search := DefaultSearchConfig()
	if ap.Search.LegLength > 0 {
		search.LegLength = ap.Search.LegLength
	}
	if ap.Search.LegExpansion > 0 {
		search.LegExpansion = ap.Search.LegExpansion
	}
	if ap.Search.ExpandEveryLegs > 0 {
		search.ExpandEveryLegs = ap.Search.ExpandEveryLegs
	}
	if ap.Search.SampleSpacing > 0 {
		search.SampleSpacing = ap.Search.SampleSpacing
	}
	if ap.Search.ZoneSize > 0 {
		search.ZoneSize = ap.Search.ZoneSize
	}
	if ap.Search.SnapTolerance > 0 {
		search.SnapTolerance = ap.Search.SnapTolerance
	}
	if ap.Search.MaxRadius > 0 {
		search.MaxRadius = ap.Search.MaxRadius
	}
	if ap.Search.TimeoutSeconds > 0 {
		search.Timeout = secondsToDuration(ap.Search.TimeoutSeconds)
	}
	if ap.Search.ScanSeconds > 0 {
		search.ScanDuration = secondsToDuration(ap.Search.ScanSeconds)
	}

	tuning := DefaultTriggerTuning()
	for _, at := range ap.Attack.Triggers {
		if err := applyTriggerTuning(&tuning, at); err != nil {
			return nil, fmt.Errorf("profile %s: %w", ap.ID, err)
		}
	}

	capability := CapabilityID(ap.Attack.Capability)
	if capability == "" {
		capability = CapabilityGrenade
	}
	if _, ok := catalog[capability]; !ok {
		return nil, fmt.Errorf("profile %s references unknown capability %q", ap.ID, capability)
	}

	profile := &Profile{
		ID:       ap.ID,
		Memory:   memory,
		Search:   search,
		Triggers: tuning,
		Arbiter: ArbiterConfig{
			Capability:   capability,
			SafetyMargin: ap.Attack.SafetyMargin,
			Cooldown:     secondsToDuration(ap.Attack.CooldownSeconds),
		},
		PlannerMaxNodes:   ap.Planner.MaxExpandedNodes,
		MoveSpeed:         ap.Move.Speed,
		ArriveRadius:      ap.Move.ArriveRadius,
		VisionRange:       ap.Move.VisionRange,
		MeleeRange:        ap.Move.MeleeRange,
		RetreatHealthFrac: ap.Nerve.RetreatHealthFrac,
		SafeDistance:      ap.Nerve.SafeDistance,
		SuppressedSeconds: ap.Nerve.SuppressedSeconds,
		CoverHoldSeconds:  ap.Nerve.CoverHoldSeconds,
		FlankOffset:       ap.Nerve.FlankOffset,
		StallSeconds:      ap.Nerve.StallSeconds,
		StuckEpsilon:      ap.Nerve.StuckEpsilon,
	}
	applyProfileDefaults(profile)
	return profile, nil
}

func applyTriggerTuning(tuning *TriggerTuning, at authoringTrigger) error {
	switch TriggerID(at.ID) {
	case TriggerSuppressedHidden:
		setPositive(&tuning.SuppressedHiddenCost, at.Cost)
		setPositive(&tuning.SuppressedHiddenSeconds, at.Seconds)
	case TriggerClosingThreat:
		setPositive(&tuning.ClosingThreatCost, at.Cost)
		setPositive(&tuning.ClosingThreatRadius, at.Radius)
	case TriggerWitnessedLosses:
		setPositive(&tuning.WitnessedLossesCost, at.Cost)
		setPositive(&tuning.WitnessedLossesMin, at.MinLosses)
	case TriggerSoundVulnerable:
		setPositive(&tuning.SoundVulnerableCost, at.Cost)
	case TriggerSustainedFire:
		setPositive(&tuning.SustainedFireCost, at.Cost)
		setPositive(&tuning.SustainedFireSeconds, at.Seconds)
	case TriggerDesperation:
		setPositive(&tuning.DesperationCost, at.Cost)
		setPositive(&tuning.DesperationHealthFrac, at.HealthFrac)
	case TriggerSuspicion:
		setPositive(&tuning.SuspicionCost, at.Cost)
		setPositive(&tuning.SuspicionSeconds, at.Seconds)
	default:
		return fmt.Errorf("unknown trigger %q", at.ID)
	}
	return nil
}

func setPositive(dst *float64, value float64) {
	if value > 0 {
		*dst = value
	}
}

func applyProfileDefaults(p *Profile) {
	if p.PlannerMaxNodes <= 0 {
		p.PlannerMaxNodes = DefaultMaxExpandedNodes
	}
	if p.MoveSpeed <= 0 {
		p.MoveSpeed = 160
	}
	if p.ArriveRadius <= 0 {
		p.ArriveRadius = 24
	}
	if p.VisionRange <= 0 {
		p.VisionRange = 420
	}
	if p.MeleeRange <= 0 {
		p.MeleeRange = 40
	}
	if p.RetreatHealthFrac <= 0 {
		p.RetreatHealthFrac = 0.2
	}
	if p.SafeDistance <= 0 {
		p.SafeDistance = 500
	}
	if p.SuppressedSeconds <= 0 {
		p.SuppressedSeconds = 2.5
	}
	if p.CoverHoldSeconds <= 0 {
		p.CoverHoldSeconds = 3
	}
	if p.FlankOffset <= 0 {
		p.FlankOffset = 160
	}
	if p.StallSeconds <= 0 {
		p.StallSeconds = 3
	}
	if p.StuckEpsilon <= 0 {
		p.StuckEpsilon = 0.5
	}
}

// validateProfile surfaces out-of-range tuning as startup warnings, not
// runtime faults.
func validateProfile(p *Profile, catalog StaticCatalog) []string {
	var warnings []string
	desc, ok := catalog[p.Arbiter.Capability]
	if ok && desc.ThrowRange > 0 {
		minSafe := desc.EffectRadius + p.Arbiter.SafetyMargin
		if minSafe > desc.ThrowRange {
			warnings = append(warnings, fmt.Sprintf(
				"profile %s: safety margin %.0f pushes minimum safe distance %.0f beyond %s throw range %.0f; the attack can never fire",
				p.ID, p.Arbiter.SafetyMargin, minSafe, desc.ID, desc.ThrowRange))
		}
	}
	if p.Memory.LostThreshold >= p.Memory.LowThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"profile %s: lost threshold %.2f is not below low threshold %.2f",
			p.ID, p.Memory.LostThreshold, p.Memory.LowThreshold))
	}
	if p.Search.SampleSpacing > p.Search.ZoneSize {
		warnings = append(warnings, fmt.Sprintf(
			"profile %s: sample spacing %.0f exceeds zone size %.0f; legs may skip zones",
			p.ID, p.Search.SampleSpacing, p.Search.ZoneSize))
	}
	return warnings
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Profile returns the compiled profile for an id.
func (l *Library) Profile(id string) (*Profile, bool) {
	if l == nil {
		return nil, false
	}
	profile, ok := l.profiles[id]
	return profile, ok
}

// Catalog exposes the compiled capability catalog.
func (l *Library) Catalog() CapabilityCatalog {
	if l == nil {
		return StaticCatalog{}
	}
	return l.catalog
}

// Warnings lists configuration problems detected at load time.
func (l *Library) Warnings() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.warnings...)
}
