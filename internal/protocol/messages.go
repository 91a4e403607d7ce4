package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	ClientName        string   `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	RecipeKinds     []string       `json:"recipe_kinds"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	ItemPalette    DigestRef `json:"item_palette"`
	RecipesDigest  string    `json:"recipes_digest"`
	OredictDigest  string    `json:"oredict_digest"`
	MappingsDigest string    `json:"mappings_digest"`
	TuningDigest   string    `json:"tuning_digest"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CONFIG (server -> client): the uncrafting settings in effect, sent right
// after WELCOME. Clients treat it as read-only.
type ConfigMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Digest          string     `json:"digest"`
	Config          ConfigData `json:"config"`
}

type ConfigData struct {
	StandardLevel     int      `json:"standard_level"`
	MaxUsedLevel      int      `json:"max_used_level"`
	UncraftMethod     int      `json:"uncraft_method"`
	UncraftMethodName string   `json:"uncraft_method_name"`
	ExcludedItems     []string `json:"excluded_items"`
	EnabledMods       []string `json:"enabled_mods"`
}

// Stack is an item stack on the wire.
type Stack struct {
	ID    string         `json:"id"`
	Count int            `json:"count,omitempty"`
	Meta  int            `json:"meta,omitempty"`
	Tag   map[string]any `json:"tag,omitempty"`
}

// UNCRAFT (client -> server)
type UncraftMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Item            Stack  `json:"item"`
}

// GRID (server -> client). Empty slots are null.
type GridMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	RequestID       string           `json:"request_id,omitempty"`
	RecipeID        string           `json:"recipe_id"`
	Kind            string           `json:"kind"`
	Output          Stack            `json:"output"`
	Slots           [GridSize]*Stack `json:"slots"`
	Cached          bool             `json:"cached,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	Suggestion      string `json:"suggestion,omitempty"`
}
