package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threadPage = `<html><body>
<article data-testid="tweet">
  <div data-testid="User-Name"><span>Ash</span><span>@ash_k</span></div>
  <a href="/ash_k/status/100">2h</a>
  <div data-testid="tweetText">Anyone know the pull rates for the new set?</div>
</article>
<article data-testid="tweet">
  <div data-testid="User-Name"><span>Misty</span><span>@misty</span></div>
  <a href="/misty/status/101">1h</a>
  <div data-testid="tweetText">Brutal. One SIR per case if you are lucky.</div>
</article>
<article data-testid="tweet">
  <div data-testid="User-Name"><span>Brock</span><span>@brock</span></div>
  <a href="/brock/status/102/photo/1">1m</a>
  <div data-testid="tweetText">Got lucky on my first box <span>🔥</span></div>
  <div data-testid="tweetPhoto"><img src="https://pbs.example.com/media/abc.jpg"></div>
</article>
</body></html>`

func TestParsePostHTML_Thread(t *testing.T) {
	post, err := ParsePostHTML(strings.NewReader(threadPage))
	require.NoError(t, err)

	assert.Equal(t, "102", post.ID)
	assert.Equal(t, "brock", post.AuthorID)
	assert.Equal(t, "Got lucky on my first box 🔥", post.Text)
	assert.True(t, post.HasImages)
	assert.Equal(t, []string{"https://pbs.example.com/media/abc.jpg"}, post.ImageRefs)

	require.NotNil(t, post.Thread)
	assert.Equal(t, 3, post.Thread.ThreadLength)
	require.Len(t, post.Thread.FullConversation, 3)
	assert.Equal(t, "ash_k", post.Thread.FullConversation[0].Username)
	assert.Equal(t, "Brutal. One SIR per case if you are lucky.", post.Thread.FullConversation[1].Text)
}

func TestParsePostHTML_BareTweetText(t *testing.T) {
	post, err := ParsePostHTML(strings.NewReader(`<div data-testid="tweetText">Target restock today?</div>`))
	require.NoError(t, err)
	assert.Equal(t, "Target restock today?", post.Text)
	assert.Nil(t, post.Thread)
	assert.False(t, post.HasImages)
}

func TestParsePostHTML_NoPost(t *testing.T) {
	_, err := ParsePostHTML(strings.NewReader(`<html><body><p>Log in</p></body></html>`))
	assert.ErrorIs(t, err, ErrNoPost)
}
