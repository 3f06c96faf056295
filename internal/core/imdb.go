package core

import "github.com/mikey-austin/pitv/pkg/pitv"

// ImdbSearch is the metadata-search selection state. Path is empty when no search is shown.
type ImdbSearch struct {
	Path           string           `json:"path"`
	Working        bool             `json:"working"`
	Results        []pitv.Candidate `json:"results"`
	Index          int              `json:"index"`
	UseTitle       bool             `json:"useTitle"`
	UseDescription bool             `json:"useDescription"`
	UseImage       bool             `json:"useImage"`
}

// Active reports whether a search is in progress or displayed.
func (s ImdbSearch) Active() bool {
	return s.Path != ""
}

// HasNext reports whether Next would move.
func (s ImdbSearch) HasNext() bool {
	return s.Index+1 < len(s.Results)
}

// HasPrev reports whether Prev would move.
func (s ImdbSearch) HasPrev() bool {
	return s.Index > 0 && len(s.Results) > 0
}

// Selected returns the candidate at Index.
func (s ImdbSearch) Selected() (pitv.Candidate, bool) {
	if s.Index < 0 || s.Index >= len(s.Results) {
		return pitv.Candidate{}, false
	}
	return s.Results[s.Index], true
}

func (s ImdbSearch) clone() ImdbSearch {
	out := s
	out.Results = append([]pitv.Candidate(nil), s.Results...)
	return out
}

// MetadataSearch steps through external metadata candidates for one video.
type MetadataSearch struct {
	state ImdbSearch
}

// State returns a copy of the search state.
func (m *MetadataSearch) State() ImdbSearch {
	return m.state.clone()
}

// Start begins a search for path. Any previous search is replaced.
func (m *MetadataSearch) Start(path string) {
	m.state = ImdbSearch{
		Path:           path,
		Working:        true,
		UseTitle:       true,
		UseDescription: true,
		UseImage:       true,
	}
}

// Receive stores results for the active search. Results for another path are ignored.
func (m *MetadataSearch) Receive(results pitv.ImdbResults) bool {
	if !m.state.Active() || results.Path != m.state.Path {
		return false
	}
	m.state.Working = false
	m.state.Results = append([]pitv.Candidate(nil), results.Results...)
	m.state.Index = 0
	return true
}

// Next selects the following candidate when there is one.
func (m *MetadataSearch) Next() bool {
	if !m.state.HasNext() {
		return false
	}
	m.state.Index++
	return true
}

// Prev selects the preceding candidate when there is one.
func (m *MetadataSearch) Prev() bool {
	if !m.state.HasPrev() {
		return false
	}
	m.state.Index--
	return true
}

// SetFields chooses which candidate fields Done copies.
func (m *MetadataSearch) SetFields(useTitle, useDescription, useImage bool) {
	m.state.UseTitle = useTitle
	m.state.UseDescription = useDescription
	m.state.UseImage = useImage
}

// Done copies the flagged, non-null fields of the selected candidate into
// fields and resets the search.
func (m *MetadataSearch) Done(fields *EditFields) error {
	if !m.state.Active() {
		return ErrNoSearch
	}
	if candidate, ok := m.state.Selected(); ok {
		if m.state.UseTitle && candidate.Title != nil {
			fields.Title = *candidate.Title
		}
		if m.state.UseDescription && candidate.Description != nil {
			fields.Description = *candidate.Description
		}
		if m.state.UseImage && candidate.Image != nil {
			img := *candidate.Image
			fields.Image = &img
		}
	}
	m.Reset()
	return nil
}

// Reset clears the search.
func (m *MetadataSearch) Reset() {
	m.state = ImdbSearch{}
}
