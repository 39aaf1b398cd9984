package uidchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Registered(t *testing.T) {
	for _, name := range append(BuiltinNames, "votes", "screenshot", "forms", "announcer") {
		c, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}

func TestLookup_Custom(t *testing.T) {
	c, err := Lookup("blog_posts.author")
	require.NoError(t, err)
	assert.IsType(t, &Primitive{}, c)
	assert.Equal(t, "blog_posts.author", c.Name())

	c, err = Lookup("fullblog_subscriptions.username!")
	require.NoError(t, err)
	assert.IsType(t, &Unique{}, c)

	_, err = Lookup("nodot")
	require.Error(t, err)

	_, err = Lookup("bad table.author")
	require.Error(t, err)

	_, err = Lookup("t.c; DROP TABLE session")
	require.Error(t, err)
}

func TestFromNames_KeepsOrderAndSkipsBlanks(t *testing.T) {
	cs, err := FromNames([]string{"wiki", " ", "attachment"})
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "wiki", cs[0].Name())
	assert.Equal(t, "attachment", cs[1].Name())

	_, err = FromNames([]string{"wiki", "unknown"})
	require.Error(t, err)
}
