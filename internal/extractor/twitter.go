package extractor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
)

type tweetResponse struct {
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
}

// tweetText fetches the text of a single tweet via the Twitter v2 API
func (e *Extractor) tweetText(ctx context.Context, link string) string {
	if e.twitterBearerToken == "" {
		log.Print("extractor: no twitter bearer token configured, skipping")
		return ""
	}

	tweetID := tweetIDFromURL(link)
	if tweetID == "" {
		log.Printf("extractor: could not parse tweet id from %s", link)
		return ""
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.twitterBearerToken)

	raw, err := e.fetch(ctx, e.twitterAPIBase+"/2/tweets/"+url.PathEscape(tweetID), header)
	if err != nil {
		log.Printf("extractor: tweet fetch failed for %s: %v", tweetID, err)
		return ""
	}

	var resp tweetResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.Printf("extractor: tweet response parse failed for %s: %v", tweetID, err)
		return ""
	}

	return resp.Data.Text
}

// tweetIDFromURL takes the last path segment of a tweet URL, ignoring any
// query string.
func tweetIDFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return ""
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}
