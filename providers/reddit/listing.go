package reddit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-saved/core"
)

const (
	kindComment = "t1"
	kindPost    = "t3"
)

type listingEnvelope struct {
	Kind string `json:"kind"`
	Data struct {
		After    *string      `json:"after"`
		Children []listingRaw `json:"children"`
	} `json:"data"`
}

type listingRaw struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// thingData is the subset of a post or comment the pipeline reads. Author
// and subreddit arrive as plain names.
type thingData struct {
	Name       string  `json:"name"`
	Author     *string `json:"author"`
	Subreddit  *string `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
	Over18     bool    `json:"over_18"`
	Permalink  string  `json:"permalink"`
	Title      string  `json:"title"`
	LinkTitle  string  `json:"link_title"`
	Thumbnail  string  `json:"thumbnail"`
	Body       string  `json:"body"`
}

func decodeListing(body []byte) (core.RawPage, error) {
	var envelope listingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.RawPage{}, fmt.Errorf("reddit: decode listing: %w", err)
	}
	if envelope.Kind != "" && envelope.Kind != "Listing" {
		return core.RawPage{}, fmt.Errorf("reddit: unexpected listing kind %q", envelope.Kind)
	}

	page := core.RawPage{Items: make([]core.RawItem, 0, len(envelope.Data.Children))}
	if envelope.Data.After != nil {
		page.After = strings.TrimSpace(*envelope.Data.After)
	}
	for _, child := range envelope.Data.Children {
		page.Items = append(page.Items, decodeThing(child))
	}
	return page, nil
}

// decodeThing never fails: an undecodable entry becomes RawUnknown so the
// normalizer can drop it without losing the rest of the page.
func decodeThing(child listingRaw) core.RawItem {
	var data thingData
	if err := json.Unmarshal(child.Data, &data); err != nil {
		return core.RawUnknown{Kind: child.Kind}
	}
	switch child.Kind {
	case kindPost:
		return core.RawPost{RawFields: data.fields(), Thumbnail: data.Thumbnail}
	case kindComment:
		return core.RawComment{RawFields: data.fields(), Body: data.Body}
	default:
		return core.RawUnknown{Kind: child.Kind, Name: data.Name}
	}
}

func (d thingData) fields() core.RawFields {
	fields := core.RawFields{
		Name:       d.Name,
		CreatedUTC: d.CreatedUTC,
		Over18:     d.Over18,
		Permalink:  d.Permalink,
		Title:      d.Title,
		LinkTitle:  d.LinkTitle,
	}
	if d.Author != nil {
		fields.Author = &core.RawAuthor{Name: *d.Author}
	}
	if d.Subreddit != nil {
		fields.Subreddit = &core.RawSubreddit{DisplayName: *d.Subreddit}
	}
	return fields
}
