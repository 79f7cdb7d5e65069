package domain

import (
	"slices"
	"strings"
	"time"
)

// Profile carries the display payload for one applicant card.
type Profile struct {
	Name     string   `json:"name" yaml:"name"`
	Headline string   `json:"headline,omitempty" yaml:"headline,omitempty"`
	Notes    string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Applicant is one reviewable queue item for a role.
type Applicant struct {
	ID           string
	RoleID       string
	ProcessState ProcessState
	StatusTag    string
	Profile      Profile
	Position     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ApplicantInput holds values for constructing an applicant.
type ApplicantInput struct {
	ID           string
	RoleID       string
	ProcessState ProcessState
	StatusTag    string
	Profile      Profile
	Position     int
}

// NewApplicant validates input and constructs an applicant in its initial stage when none is given.
func NewApplicant(in ApplicantInput, now time.Time) (Applicant, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.RoleID = strings.TrimSpace(in.RoleID)
	in.StatusTag = strings.TrimSpace(in.StatusTag)
	in.Profile.Name = strings.TrimSpace(in.Profile.Name)
	in.Profile.Headline = strings.TrimSpace(in.Profile.Headline)
	in.Profile.Notes = strings.TrimSpace(in.Profile.Notes)

	if in.ID == "" {
		return Applicant{}, ErrInvalidID
	}
	if in.RoleID == "" {
		return Applicant{}, ErrInvalidRoleID
	}
	if in.Profile.Name == "" {
		return Applicant{}, ErrInvalidName
	}
	if in.Position < 0 {
		in.Position = 0
	}
	state := NormalizeProcessState(in.ProcessState)
	if state == "" {
		state = StateApplied
	}
	if in.StatusTag == "" {
		in.StatusTag = string(state)
	}
	in.Profile.Tags = normalizeTags(in.Profile.Tags)

	return Applicant{
		ID:           in.ID,
		RoleID:       in.RoleID,
		ProcessState: state,
		StatusTag:    in.StatusTag,
		Profile:      in.Profile,
		Position:     in.Position,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// WithTransition returns a copy of the applicant moved to the transition's stage and status.
func (a Applicant) WithTransition(t Transition, now time.Time) Applicant {
	next := a
	next.ProcessState = t.ProcessState
	next.StatusTag = t.StatusTag
	next.Profile.Tags = append([]string(nil), a.Profile.Tags...)
	next.UpdatedAt = now.UTC()
	return next
}

// DisplayName returns the profile name or the id when the name is blank.
func (a Applicant) DisplayName() string {
	if name := strings.TrimSpace(a.Profile.Name); name != "" {
		return name
	}
	return a.ID
}

// normalizeTags lowercases, trims, dedupes, and sorts tags.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}
