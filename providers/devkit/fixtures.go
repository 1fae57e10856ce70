package devkit

import (
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-saved/core"
)

// ListingChild is one entry of a provider listing, tagged with its thing
// kind ("t3" for posts, "t1" for comments).
type ListingChild struct {
	Kind string         `json:"kind"`
	Data map[string]any `json:"data"`
}

func JSONScript(status int, payload any) TransportScript {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return TransportScript{Response: core.TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}}
}

func StatusScript(status int) TransportScript {
	return JSONScript(status, map[string]any{"message": http.StatusText(status), "error": status})
}

func TokenScript(accessToken, refreshToken string) TransportScript {
	return JSONScript(http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
		"expires_in":    3600,
		"scope":         "identity history",
	})
}

func MeScript(id, name string) TransportScript {
	return JSONScript(http.StatusOK, map[string]any{"id": id, "name": name})
}

func ListingScript(after string, children ...ListingChild) TransportScript {
	var afterValue any
	if after != "" {
		afterValue = after
	}
	if children == nil {
		children = []ListingChild{}
	}
	return JSONScript(http.StatusOK, map[string]any{
		"kind": "Listing",
		"data": map[string]any{
			"after":    afterValue,
			"before":   nil,
			"children": children,
		},
	})
}

func PostChild(name, title, thumbnail string) ListingChild {
	return ListingChild{Kind: "t3", Data: map[string]any{
		"name":         name,
		"author":       "alice",
		"subreddit":    "golang",
		"created_utc":  1700000000.0,
		"over_18":      false,
		"permalink":    "/r/golang/comments/" + name,
		"title":        title,
		"thumbnail":    thumbnail,
		"is_self":      thumbnail == "self",
		"num_comments": 3,
	}}
}

func CommentChild(name, linkTitle, body string) ListingChild {
	return ListingChild{Kind: "t1", Data: map[string]any{
		"name":        name,
		"author":      "bob",
		"subreddit":   "golang",
		"created_utc": 1700000100.0,
		"over_18":     false,
		"permalink":   "/r/golang/comments/abc/x/" + name,
		"link_title":  linkTitle,
		"body":        body,
	}}
}
