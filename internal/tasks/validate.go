package tasks

import "strings"

const (
	MsgTitleRequired       = "Title is Required!"
	MsgTitleNotUnique      = "Title must be unique!"
	MsgDescriptionRequired = "Description is Required!"
)

// Validate checks candidate against existing. excludeID names the task being
// edited so that it may keep its own title; pass "" when adding.
// Every failing field is reported; nothing is carried over between calls.
func Validate(candidate Fields, existing []Task, excludeID string) Validation {
	errs := make(map[string]string)

	switch {
	case strings.TrimSpace(candidate.Title) == "":
		errs[FieldTitle] = MsgTitleRequired
	case titleTaken(candidate.Title, existing, excludeID):
		errs[FieldTitle] = MsgTitleNotUnique
	}

	if strings.TrimSpace(candidate.Description) == "" {
		errs[FieldDescription] = MsgDescriptionRequired
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

func titleTaken(title string, existing []Task, excludeID string) bool {
	for _, t := range existing {
		if excludeID != "" && t.ID == excludeID {
			continue
		}
		if t.Title == title {
			return true
		}
	}
	return false
}
