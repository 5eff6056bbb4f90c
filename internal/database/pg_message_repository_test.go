package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatty-server/internal/models"
)

func TestBuildListMessagesQueryNoFilter(t *testing.T) {
	query, args := buildListMessagesQuery(models.MessageFilter{})
	assert.Empty(t, args)
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY m.created_at DESC")
}

func TestBuildListMessagesQuerySearch(t *testing.T) {
	query, args := buildListMessagesQuery(models.MessageFilter{Search: "deploy"})
	require.Len(t, args, 1)
	assert.Equal(t, "%deploy%", args[0])
	assert.Contains(t, query, "m.content ILIKE $1")
}

func TestBuildListMessagesQuerySearchAndPriority(t *testing.T) {
	query, args := buildListMessagesQuery(models.MessageFilter{
		Search:   "deploy",
		Priority: models.PriorityHigh,
	})
	require.Len(t, args, 2)
	assert.Equal(t, "%deploy%", args[0])
	assert.Equal(t, models.PriorityHigh, args[1])
	assert.Contains(t, query, "m.content ILIKE $1")
	assert.Contains(t, query, "m.priority = $2")
}

func TestBuildListMessagesQueryNeverInlinesInput(t *testing.T) {
	hostile := `'; DROP TABLE messages; --`
	query, args := buildListMessagesQuery(models.MessageFilter{Search: hostile})

	// User input appears only in the argument list.
	assert.NotContains(t, query, "DROP TABLE")
	require.Len(t, args, 1)
	assert.Contains(t, args[0].(string), "DROP TABLE")
}

func TestLikeEscaperNeutralizesMetacharacters(t *testing.T) {
	assert.Equal(t, `100\%`, likeEscaper.Replace("100%"))
	assert.Equal(t, `a\_b`, likeEscaper.Replace("a_b"))
	assert.Equal(t, `c:\\temp`, likeEscaper.Replace(`c:\temp`))
	assert.False(t, strings.ContainsAny(likeEscaper.Replace("plain"), `\`))
}
