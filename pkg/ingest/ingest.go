// Package ingest turns a saved post page into a types.Post.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cpunion/reply-bot/pkg/types"
)

// ErrNoPost means the page holds no recognizable post text.
var ErrNoPost = errors.New("no post found in page")

const (
	articleSel = `article[data-testid="tweet"]`
	textSel    = `[data-testid="tweetText"]`
	userSel    = `[data-testid="User-Name"]`
	photoSel   = `[data-testid="tweetPhoto"] img`
)

var statusRe = regexp.MustCompile(`/([A-Za-z0-9_]+)/status/(\d+)`)

type parsed struct {
	id       string
	username string
	text     string
	images   []string
}

// ParsePostHTML reads a post page. The last article on the page is the post
// being answered; earlier articles become its thread.
func ParsePostHTML(r io.Reader) (types.Post, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return types.Post{}, fmt.Errorf("parse html: %w", err)
	}

	var items []parsed
	doc.Find(articleSel).Each(func(_ int, s *goquery.Selection) {
		if p, ok := parseArticle(s); ok {
			items = append(items, p)
		}
	})
	if len(items) == 0 {
		if p, ok := parseArticle(doc.Selection); ok {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return types.Post{}, ErrNoPost
	}

	current := items[len(items)-1]
	post := types.Post{
		ID:        current.id,
		AuthorID:  current.username,
		Text:      current.text,
		HasImages: len(current.images) > 0,
		ImageRefs: current.images,
	}
	if len(items) > 1 {
		tc := &types.ThreadContext{ThreadLength: len(items)}
		for _, it := range items {
			tc.FullConversation = append(tc.FullConversation, types.ThreadTurn{Username: it.username, Text: it.text})
		}
		post.Thread = tc
	}
	return post, nil
}

func parseArticle(s *goquery.Selection) (parsed, bool) {
	text := strings.TrimSpace(s.Find(textSel).First().Text())
	if text == "" {
		return parsed{}, false
	}
	p := parsed{text: text}

	s.Find(`a[href*="/status/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := statusRe.FindStringSubmatch(href); m != nil {
			p.username, p.id = m[1], m[2]
			return false
		}
		return true
	})
	s.Find(userSel).Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if handle := strings.TrimSpace(span.Text()); strings.HasPrefix(handle, "@") {
			p.username = strings.TrimPrefix(handle, "@")
			return false
		}
		return true
	})
	s.Find(photoSel).Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			p.images = append(p.images, src)
		}
	})
	return p, true
}
