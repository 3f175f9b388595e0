package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflectbot/reflectbot/internal/store"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"I am tired!!!", "i am tired"},
		{"  Hello,   world.  ", "hello world"},
		{"What?! Really; yes: no.", "what really yes no"},
		{"already normal", "already normal"},
		{"", ""},
		{"   \t\n  ", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestSimilar(t *testing.T) {
	const threshold = 0.9

	// Different content, no containment.
	assert.False(t, Similar("i am tired", "i feel great", threshold))

	// Contained but the ratio is too large: 18/10 = 1.8.
	assert.False(t, Similar("i am tired", "i am tired and sad", threshold))

	// Contained with ratio under 1.2: 26/23 = 1.13.
	assert.True(t, Similar("i am really tired today", "i am really tired today ok", threshold))

	// Order of arguments does not matter.
	assert.True(t, Similar("i am really tired today ok", "i am really tired today", threshold))

	// Identical strings.
	assert.True(t, Similar("same", "same", threshold))

	// Empty never matches anything.
	assert.False(t, Similar("", "anything", threshold))
	assert.False(t, Similar("anything", "", threshold))
}

func openStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIsDuplicateInteraction(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	require.NoError(t, db.UpsertUser(ctx, 7, "u", "", ""))

	prior, err := db.InsertMessage(ctx, 7, "I am tired", "user")
	require.NoError(t, err)

	c := NewChecker(db, 0)

	// The candidate row itself is excluded from the window, so a first-time
	// message is not its own duplicate.
	dup, err := c.IsDuplicateInteraction(ctx, 7, prior.Content, prior.CreatedAt, prior.ID)
	require.NoError(t, err)
	assert.False(t, dup)

	candidate, err := db.InsertMessage(ctx, 7, "i am tired!!!", "user")
	require.NoError(t, err)

	// Punctuation and case variants of a prior message are duplicates.
	dup, err = c.IsDuplicateInteraction(ctx, 7, candidate.Content, candidate.CreatedAt, candidate.ID)
	require.NoError(t, err)
	assert.True(t, dup)

	// Genuinely new content passes.
	fresh, err := db.InsertMessage(ctx, 7, "today was actually fine", "user")
	require.NoError(t, err)
	dup, err = c.IsDuplicateInteraction(ctx, 7, fresh.Content, fresh.CreatedAt, fresh.ID)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestIsDuplicateInteractionWindowIsOneHour(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	require.NoError(t, db.UpsertUser(ctx, 7, "u", "", ""))

	old, err := db.InsertMessage(ctx, 7, "I am tired", "user")
	require.NoError(t, err)

	c := NewChecker(db, 0)

	// Same text checked two hours later falls outside the trailing hour.
	later := old.CreatedAt.Add(2 * time.Hour)
	dup, err := c.IsDuplicateInteraction(ctx, 7, "I am tired", later, "other-id")
	require.NoError(t, err)
	assert.False(t, dup)

	// Within the hour it is a duplicate.
	dup, err = c.IsDuplicateInteraction(ctx, 7, "I am tired", old.CreatedAt.Add(30*time.Minute), "other-id")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestIsDuplicateTodayScopedToUser(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	require.NoError(t, db.UpsertUser(ctx, 1, "a", "", ""))
	require.NoError(t, db.UpsertUser(ctx, 2, "b", "", ""))

	msg, err := db.InsertMessage(ctx, 1, "rough day at work", "user")
	require.NoError(t, err)

	c := NewChecker(db, 0)

	dup, err := c.IsDuplicateToday(ctx, 1, "rough day at work", msg.CreatedAt, "other-id")
	require.NoError(t, err)
	assert.True(t, dup)

	// Another user saying the same thing is not a duplicate.
	dup, err = c.IsDuplicateToday(ctx, 2, "rough day at work", msg.CreatedAt, "other-id")
	require.NoError(t, err)
	assert.False(t, dup)
}
