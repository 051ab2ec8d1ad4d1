package ai

// CapabilityID identifies a registered attack capability.
type CapabilityID string

// Built-in capability ids. Only area attacks carry catalog descriptors; the
// direct weapons resolve inside the host simulation.
const (
	CapabilityGrenade CapabilityID = "frag-grenade"
	CapabilityRifle   CapabilityID = "service-rifle"
	CapabilityMelee   CapabilityID = "melee"
)

// CapabilityDescriptor is the static description of an area attack. The
// safety gate reads the effect radius from here instead of instantiating
// anything at decision time.
type CapabilityDescriptor struct {
	ID           CapabilityID `json:"id"`
	Name         string       `json:"name"`
	EffectRadius float64      `json:"effectRadius"`
	ThrowRange   float64      `json:"throwRange"`
	Cooldown     float64      `json:"cooldownSeconds"`
	Charges      int          `json:"charges"`
}

// CapabilityCatalog resolves descriptors by attack-type id.
type CapabilityCatalog interface {
	Descriptor(id CapabilityID) (CapabilityDescriptor, bool)
}

// StaticCatalog is the map-backed catalog compiled from the embedded config.
type StaticCatalog map[CapabilityID]CapabilityDescriptor

func (c StaticCatalog) Descriptor(id CapabilityID) (CapabilityDescriptor, bool) {
	desc, ok := c[id]
	return desc, ok
}
