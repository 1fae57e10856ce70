package core

import (
	"fmt"
	"strings"
)

var placeholderThumbnails = map[string]struct{}{
	"":        {},
	"self":    {},
	"default": {},
	"nsfw":    {},
	"spoiler": {},
	"image":   {},
}

// Normalize maps one provider item to a SavedItem.
func Normalize(raw RawItem) (SavedItem, error) {
	switch item := raw.(type) {
	case RawPost:
		saved, err := normalizeFields(item.RawFields, ItemKindPost)
		if err != nil {
			return SavedItem{}, err
		}
		saved.Thumbnail = normalizeThumbnail(item.Thumbnail)
		return saved, nil
	case *RawPost:
		if item == nil {
			return SavedItem{}, &MalformedItemError{Reason: "item is nil"}
		}
		return Normalize(*item)
	case RawComment:
		return normalizeFields(item.RawFields, ItemKindComment)
	case *RawComment:
		if item == nil {
			return SavedItem{}, &MalformedItemError{Reason: "item is nil"}
		}
		return Normalize(*item)
	case RawUnknown:
		return SavedItem{}, &MalformedItemError{
			Name:   item.Name,
			Reason: fmt.Sprintf("unsupported item kind %q", item.Kind),
		}
	case nil:
		return SavedItem{}, &MalformedItemError{Reason: "item is nil"}
	default:
		return SavedItem{}, &MalformedItemError{Reason: fmt.Sprintf("unsupported item type %T", raw)}
	}
}

// NormalizePage keeps well-formed items in provider order. Each failure is
// returned with its index set.
func NormalizePage(raw RawPage) (Page, []*MalformedItemError) {
	page := Page{
		Items:  make([]SavedItem, 0, len(raw.Items)),
		Cursor: strings.TrimSpace(raw.After),
	}
	var failures []*MalformedItemError
	for index, item := range raw.Items {
		saved, err := Normalize(item)
		if err != nil {
			malformed, ok := err.(*MalformedItemError)
			if !ok {
				malformed = &MalformedItemError{Reason: err.Error()}
			}
			malformed.Index = index
			failures = append(failures, malformed)
			continue
		}
		page.Items = append(page.Items, saved)
	}
	page.Dropped = len(failures)
	return page, failures
}

func normalizeFields(fields RawFields, kind ItemKind) (SavedItem, error) {
	name := strings.TrimSpace(fields.Name)
	if name == "" {
		return SavedItem{}, &MalformedItemError{Reason: "name is required"}
	}
	title := fields.Title
	if title == "" {
		title = fields.LinkTitle
	}
	saved := SavedItem{
		CreatedUTC: fields.CreatedUTC,
		Kind:       kind,
		Name:       name,
		Over18:     fields.Over18,
		Permalink:  fields.Permalink,
		Title:      title,
	}
	if fields.Author != nil {
		saved.Author = fields.Author.Name
	}
	if fields.Subreddit != nil {
		saved.Subreddit = fields.Subreddit.DisplayName
	}
	return saved, nil
}

func normalizeThumbnail(thumbnail string) *string {
	value := strings.TrimSpace(thumbnail)
	if _, placeholder := placeholderThumbnails[strings.ToLower(value)]; placeholder {
		return nil
	}
	return &value
}
