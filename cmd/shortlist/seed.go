package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/evanschultz/shortlist/internal/domain"
)

// seedFile is the YAML import format.
//
//	role: lead
//	applicants:
//	  - name: Ada Lovelace
//	    headline: Stage and screen
//	    tags: [musical, local]
//	  - id: a2
//	    role: understudy
//	    name: Grace Hopper
//	    state: callback
type seedFile struct {
	Role       string          `yaml:"role"`
	Applicants []seedApplicant `yaml:"applicants"`
}

// seedApplicant is one applicant row in a seed file.
type seedApplicant struct {
	ID       string   `yaml:"id"`
	Role     string   `yaml:"role"`
	Name     string   `yaml:"name"`
	Headline string   `yaml:"headline"`
	Notes    string   `yaml:"notes"`
	Tags     []string `yaml:"tags"`
	State    string   `yaml:"state"`
	Status   string   `yaml:"status"`
	Position int      `yaml:"position"`
}

// readSeedFile decodes a seed file, rejecting unknown fields.
func readSeedFile(path string) (seedFile, error) {
	if strings.TrimSpace(path) == "" {
		return seedFile{}, errors.New("seed file path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return seedFile{}, fmt.Errorf("decode seed yaml %q: %w", path, err)
	}
	if len(seed.Applicants) == 0 {
		return seedFile{}, fmt.Errorf("seed file %q lists no applicants", path)
	}
	return seed, nil
}

// inputs maps seed rows onto applicant inputs; rows without a role use the file role, then fallbackRole.
func (s seedFile) inputs(fallbackRole string) []domain.ApplicantInput {
	defaultRole := firstNonBlank(s.Role, fallbackRole)
	out := make([]domain.ApplicantInput, 0, len(s.Applicants))
	for _, row := range s.Applicants {
		out = append(out, domain.ApplicantInput{
			ID:           row.ID,
			RoleID:       firstNonBlank(row.Role, defaultRole),
			ProcessState: domain.ProcessState(row.State),
			StatusTag:    row.Status,
			Position:     row.Position,
			Profile: domain.Profile{
				Name:     row.Name,
				Headline: row.Headline,
				Notes:    row.Notes,
				Tags:     row.Tags,
			},
		})
	}
	return out
}
