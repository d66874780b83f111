package identity

// Options configures where and whether an entity persists.
type Options struct {
	// Persist writes id and traits through the storage backend. When false
	// they live only in the entity. Default: true.
	Persist *bool `yaml:"persist" json:"persist"`

	// IDKey is the storage key of the entity id.
	IDKey string `yaml:"idKey" json:"idKey"`

	// OldKey is a legacy key holding {id, traits} in a single value,
	// migrated by Load. Empty disables migration.
	OldKey string `yaml:"oldKey" json:"oldKey"`

	// TraitsKey is the storage key of the traits map.
	TraitsKey string `yaml:"traitsKey" json:"traitsKey"`
}

// UserDefaults are the options of the user entity.
var UserDefaults = Options{
	IDKey:     "ajs_user_id",
	OldKey:    "ajs_user",
	TraitsKey: "ajs_user_traits",
}

// GroupDefaults are the options of the group entity.
var GroupDefaults = Options{
	IDKey:     "ajs_group_id",
	TraitsKey: "ajs_group_properties",
}

// Storage keys of the user's anonymous id.
const (
	AnonymousIDKey       = "ajs_anonymous_id"
	LegacyAnonymousIDKey = "_sio"
)

// withDefaults fills unset fields of o from defaults.
func (o Options) withDefaults(defaults Options) Options {
	if o.Persist == nil {
		o.Persist = defaults.Persist
	}
	if o.IDKey == "" {
		o.IDKey = defaults.IDKey
	}
	if o.OldKey == "" {
		o.OldKey = defaults.OldKey
	}
	if o.TraitsKey == "" {
		o.TraitsKey = defaults.TraitsKey
	}
	return o
}

func (o Options) persist() bool {
	return o.Persist == nil || *o.Persist
}
