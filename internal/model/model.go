// Package model holds the catalog value objects: artists, works and
// departments. Values are immutable by convention once constructed.
package model

import (
	"fmt"
	"strings"

	"metcatalog/internal/errors"
)

// Artist is the creator attributed to a work.
type Artist struct {
	Name        string `json:"name"`
	Nationality string `json:"nationality,omitempty"`
	BeginDate   string `json:"begin_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// NewArtist trims its inputs and requires a name.
func NewArtist(name, nationality, begin, end string) (Artist, error) {
	a := Artist{
		Name:        strings.TrimSpace(name),
		Nationality: strings.TrimSpace(nationality),
		BeginDate:   strings.TrimSpace(begin),
		EndDate:     strings.TrimSpace(end),
	}
	if a.Name == "" {
		return Artist{}, errors.WrapInvalid(errors.ErrInvalidArgument, "model", "NewArtist", "artist name is required")
	}
	return a, nil
}

// Lifespan renders the artist's life period, e.g. "1840 - 1926".
func (a Artist) Lifespan() string {
	switch {
	case a.BeginDate != "" && a.EndDate != "":
		return a.BeginDate + " - " + a.EndDate
	case a.BeginDate != "":
		return a.BeginDate + " - ?"
	case a.EndDate != "":
		return "? - " + a.EndDate
	default:
		return "Unknown"
	}
}

// Work is a single catalog object.
type Work struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Artist         Artist `json:"artist"`
	Classification string `json:"classification,omitempty"`
	ObjectDate     string `json:"object_date,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	Department     string `json:"department,omitempty"`
}

// NewWork builds a validated Work.
func NewWork(id int, title string, artist Artist, classification, objectDate, imageURL, department string) (*Work, error) {
	w := &Work{
		ID:             id,
		Title:          strings.TrimSpace(title),
		Artist:         artist,
		Classification: strings.TrimSpace(classification),
		ObjectDate:     strings.TrimSpace(objectDate),
		ImageURL:       strings.TrimSpace(imageURL),
		Department:     strings.TrimSpace(department),
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate reports whether w is a well-formed work.
func (w *Work) Validate() error {
	switch {
	case w == nil:
		return errors.WrapInvalid(errors.ErrInvalidArgument, "model", "Validate", "work is nil")
	case w.ID <= 0:
		return errors.WrapInvalid(errors.ErrInvalidArgument, "model", "Validate",
			fmt.Sprintf("work id must be positive, got %d", w.ID))
	case strings.TrimSpace(w.Title) == "":
		return errors.WrapInvalid(errors.ErrInvalidArgument, "model", "Validate", "work title is required")
	case strings.TrimSpace(w.Artist.Name) == "":
		return errors.WrapInvalid(errors.ErrInvalidArgument, "model", "Validate", "work artist is required")
	}
	return nil
}

// HasImage reports whether the work has a usable image URL.
func (w *Work) HasImage() bool {
	return strings.HasPrefix(w.ImageURL, "http://") || strings.HasPrefix(w.ImageURL, "https://")
}

// Summary is the one-line listing used in search results.
func (w *Work) Summary() string {
	s := fmt.Sprintf("[%d] %s - %s", w.ID, w.Title, w.Artist.Name)
	if w.ObjectDate != "" {
		s += " (" + w.ObjectDate + ")"
	}
	return s
}

// Department is a curatorial department of the museum.
type Department struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewDepartment requires a positive id and a name.
func NewDepartment(id int, name string) (Department, error) {
	d := Department{ID: id, Name: strings.TrimSpace(name)}
	if d.ID <= 0 {
		return Department{}, errors.WrapInvalid(errors.ErrInvalidArgument, "model", "NewDepartment",
			fmt.Sprintf("department id must be positive, got %d", id))
	}
	if d.Name == "" {
		return Department{}, errors.WrapInvalid(errors.ErrInvalidArgument, "model", "NewDepartment", "department name is required")
	}
	return d, nil
}

func (d Department) String() string {
	return fmt.Sprintf("%d - %s", d.ID, d.Name)
}
