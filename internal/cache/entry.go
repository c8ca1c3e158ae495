package cache

import (
	"slices"
	"time"
)

// FileRecord is the last known state of one tracked source or header
type FileRecord struct {
	// Path is the canonical absolute path of the file
	Path string `json:"path"`

	// Hash is the content digest taken when the file was last compiled
	Hash string `json:"hash"`

	// Includes lists the resolved headers directly included by this file, in order
	Includes []string `json:"includes,omitempty"`
}

// Equal reports whether two records describe the same content and include list
func (r FileRecord) Equal(o FileRecord) bool {
	return r.Path == o.Path && r.Hash == o.Hash && slices.Equal(r.Includes, o.Includes)
}

// State is the persisted compilation state of one task
type State struct {
	// Sources maps source path to its record
	Sources map[string]FileRecord `json:"sources"`

	// Headers maps header path to its record
	Headers map[string]FileRecord `json:"headers"`

	// SearchPath is the include search path the records were resolved against
	SearchPath []string `json:"search_path"`

	// BuildID identifies the build that produced this state
	BuildID string `json:"build_id,omitempty"`

	// UpdatedAt is when the state was saved
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates an empty state for the given search path
func NewState(searchPath []string) *State {
	return &State{
		Sources:    make(map[string]FileRecord),
		Headers:    make(map[string]FileRecord),
		SearchPath: slices.Clone(searchPath),
	}
}

// IsEmpty reports whether the state tracks no files at all
func (s *State) IsEmpty() bool {
	return s == nil || (len(s.Sources) == 0 && len(s.Headers) == 0)
}
