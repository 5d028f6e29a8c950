package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []Document {
	return []Document{
		{Kind: KindService, Slug: "صحة-القدم", Title: "صحة القدم", Body: "فحص وعلاج مشاكل القدم"},
		{Kind: KindProduct, Slug: "carbon-foot", Title: "Carbon Foot", Body: "Lightweight prosthetic foot for active users"},
		{Kind: KindPost, Slug: "walking-again", Title: "Walking again", Body: "A story about rehabilitation after amputation"},
		{Kind: KindStory, Slug: "", Title: "Untitled", Body: "dropped because it has no slug"},
	}
}

func TestSearchFindsLatinAndArabic(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Rebuild(catalog()))
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search("foot", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, KindProduct, hits[0].Kind)
	assert.Equal(t, "carbon-foot", hits[0].Slug)

	hits, err = idx.Search("القدم", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "صحة-القدم", hits[0].Slug)
}

func TestSearchBlankQuery(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()
	hits, err := idx.Search("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRebuildReplacesDocuments(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Rebuild(catalog()))
	require.NoError(t, idx.Rebuild([]Document{{Kind: KindPost, Slug: "news", Title: "Clinic news"}}))

	hits, err := idx.Search("foot", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 1, idx.Count())
}
