package extractor

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var captionTracksRe = regexp.MustCompile(`"captionTracks":\s*(\[.*?\])`)

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// youtubeTranscript fetches the caption track of a video and flattens it
// into one space-joined string.
func (e *Extractor) youtubeTranscript(ctx context.Context, link string) string {
	videoID := youtubeVideoID(link)
	if videoID == "" {
		log.Printf("extractor: could not parse video id from %s", link)
		return ""
	}

	page, err := e.fetch(ctx, e.youtubeBase+"/watch?v="+url.QueryEscape(videoID), nil)
	if err != nil {
		log.Printf("extractor: youtube watch page fetch failed for %s: %v", videoID, err)
		return ""
	}

	trackURL := captionTrackURL(page)
	if trackURL == "" {
		log.Printf("extractor: no caption track for video %s", videoID)
		return ""
	}

	raw, err := e.fetch(ctx, trackURL, nil)
	if err != nil {
		log.Printf("extractor: caption track fetch failed for %s: %v", videoID, err)
		return ""
	}

	return parseTimedText(raw)
}

// youtubeVideoID extracts the video id from the common YouTube URL shapes
func youtubeVideoID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}

	if strings.HasSuffix(u.Host, "youtu.be") {
		return strings.Trim(u.Path, "/")
	}

	if v := u.Query().Get("v"); v != "" {
		return v
	}

	for _, prefix := range []string{"/embed/", "/shorts/", "/live/"} {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			if i := strings.Index(rest, "/"); i >= 0 {
				rest = rest[:i]
			}
			return rest
		}
	}

	return ""
}

// captionTrackURL finds the first caption track embedded in a watch page,
// preferring English when available.
func captionTrackURL(page []byte) string {
	m := captionTracksRe.FindSubmatch(page)
	if m == nil {
		return ""
	}

	var tracks []captionTrack
	if err := json.Unmarshal(m[1], &tracks); err != nil || len(tracks) == 0 {
		return ""
	}

	chosen := tracks[0]
	for _, track := range tracks {
		if strings.HasPrefix(track.LanguageCode, "en") {
			chosen = track
			break
		}
	}

	return chosen.BaseURL
}

func parseTimedText(raw []byte) string {
	var doc timedText
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return ""
	}

	parts := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Value))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func (e *Extractor) fetch(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
