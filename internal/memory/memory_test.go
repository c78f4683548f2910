package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUnknownContactIsEmptyProfile(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Contact("陌生人")
	require.NoError(t, err)
	assert.Equal(t, "陌生人", p.Name)
	assert.Empty(t, p.Notes)
	assert.Zero(t, p.InteractionCount)

	hint, err := s.ContextFor("陌生人")
	require.NoError(t, err)
	assert.Empty(t, hint, "unknown contact should yield no hint")
}

func TestUpdateContactMergesNotesAndTopics(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpdateContact("张伟", []string{"喜欢火锅"}, []string{"吃饭", "周末"}))
	require.NoError(t, s.UpdateContact("张伟", []string{"喜欢火锅", "在学吉他"}, []string{"音乐", "吃饭"}))

	p, err := s.Contact("张伟")
	require.NoError(t, err)
	assert.Len(t, p.Notes, 2, "duplicate notes must not accumulate")
	assert.Equal(t, []string{"周末", "吃饭", "音乐"}, p.Topics, "topics are a sorted set")
}

func TestNoteCap(t *testing.T) {
	s := openTestStore(t)

	for batch := 0; batch < 6; batch++ {
		notes := make([]string, 100)
		for i := range notes {
			notes[i] = fmt.Sprintf("note-%d-%d", batch, i)
		}
		require.NoError(t, s.UpdateContact("话痨", notes, nil))
	}

	p, err := s.Contact("话痨")
	require.NoError(t, err)
	require.Len(t, p.Notes, maxNotes)
	assert.Equal(t, "note-5-99", p.Notes[len(p.Notes)-1], "cap drops oldest notes first")
}

func TestRecordInteraction(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordInteraction("李娜"))
	}

	p, err := s.Contact("李娜")
	require.NoError(t, err)
	assert.Equal(t, 3, p.InteractionCount)
}

func TestContextForRendersHint(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordInteraction("张伟"))
	require.NoError(t, s.UpdateContact("张伟", []string{"下周要出差"}, []string{"工作"}))
	require.NoError(t, s.UpdateUser([]string{"周末常加班"}))

	hint, err := s.ContextFor("张伟")
	require.NoError(t, err)
	assert.Contains(t, hint, "下周要出差")
	assert.Contains(t, hint, "工作")
	assert.Contains(t, hint, "周末常加班")
}

func TestContactsOrderedByFreshness(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpdateContact("旧友", []string{"a"}, nil))
	require.NoError(t, s.RecordInteraction("新欢"))

	profiles, err := s.Contacts()
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestApplyUpdates(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.ApplyUpdates("张伟", []string{"养了只猫"}, []string{"宠物"}, []string{"用户怕猫"}))
	require.NoError(t, s.ApplyUpdates("张伟", nil, nil, nil), "empty updates are a no-op")

	p, err := s.Contact("张伟")
	require.NoError(t, err)
	assert.Equal(t, []string{"养了只猫"}, p.Notes)
	assert.Equal(t, []string{"宠物"}, p.Topics)

	userNotes, err := s.UserNotes()
	require.NoError(t, err)
	assert.Equal(t, []string{"用户怕猫"}, userNotes)
}

func TestForget(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpdateContact("张伟", []string{"喜欢火锅"}, nil))

	removed, err := s.Forget("张伟")
	require.NoError(t, err)
	assert.True(t, removed)

	p, err := s.Contact("张伟")
	require.NoError(t, err)
	assert.Empty(t, p.Notes)

	removed, err = s.Forget("张伟")
	require.NoError(t, err)
	assert.False(t, removed, "second forget has nothing to remove")
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
