package service

import (
	"strings"

	"metcatalog/internal/errors"
	"metcatalog/internal/metapi"
	"metcatalog/internal/model"
)

const unknownArtist = "Unknown artist"

// WorkFromObject converts a raw API record into a validated Work.
func WorkFromObject(obj *metapi.Object) (*model.Work, error) {
	if obj == nil {
		return nil, errors.WrapInvalid(errors.ErrIncompleteData, "service", "WorkFromObject", "object is nil")
	}

	name := strings.TrimSpace(obj.ArtistDisplayName)
	if name == "" {
		name = unknownArtist
	}
	artist, err := model.NewArtist(name, obj.ArtistNationality, obj.ArtistBeginDate, obj.ArtistEndDate)
	if err != nil {
		return nil, err
	}

	w, err := model.NewWork(obj.ObjectID, obj.Title, artist,
		obj.Classification, obj.ObjectDate, imageURL(obj), obj.Department)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrIncompleteData, "service", "WorkFromObject", err.Error())
	}
	return w, nil
}

// imageURL picks the first http(s) image of the record.
func imageURL(obj *metapi.Object) string {
	for _, u := range []string{obj.PrimaryImage, obj.PrimaryImageSmall} {
		u = strings.TrimSpace(u)
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return u
		}
	}
	return ""
}

// departmentsFromAPI converts department records, skipping invalid ones.
func departmentsFromAPI(raw []metapi.Department) []model.Department {
	out := make([]model.Department, 0, len(raw))
	for _, d := range raw {
		dept, err := model.NewDepartment(d.DepartmentID, d.DisplayName)
		if err != nil {
			continue
		}
		out = append(out, dept)
	}
	return out
}
