package photo

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func files(n int) []File {
	out := make([]File, n)
	for i := range out {
		out[i] = File{Name: fmt.Sprintf("img%d.jpg", i), Data: []byte{byte(i)}, Preview: fmt.Sprintf("preview://%d", i)}
	}
	return out
}

func ids(list []Draft) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.ID
	}
	return out
}

func assertInvariants(t *testing.T, list []Draft) {
	t.Helper()
	require.LessOrEqual(t, len(list), MaxPhotos)
	covers := 0
	seen := map[string]bool{}
	for i, d := range list {
		assert.Equal(t, i, d.Order, "order must be dense")
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
		if d.Cover {
			covers++
		}
	}
	if len(list) == 0 {
		assert.Zero(t, covers)
	} else {
		assert.Equal(t, 1, covers, "exactly one cover")
	}
}

func TestAdd(t *testing.T) {
	t.Run("first photo becomes cover", func(t *testing.T) {
		list, accepted := Add(nil, files(3))
		require.Len(t, list, 3)
		assert.Equal(t, 3, accepted)
		assert.True(t, list[0].Cover)
		for _, d := range list {
			assert.Equal(t, OriginNew, d.Origin)
			assert.Equal(t, TagOther, d.Tag)
			assert.NotEmpty(t, d.ID)
		}
		assertInvariants(t, list)
	})

	t.Run("capacity drops excess files", func(t *testing.T) {
		list, _ := Add(nil, files(18))
		list, accepted := Add(list, files(5))
		assert.Len(t, list, MaxPhotos)
		assert.Equal(t, 2, accepted)
		assert.Zero(t, Remaining(list))

		list, accepted = Add(list, files(1))
		assert.Len(t, list, MaxPhotos)
		assert.Zero(t, accepted)
	})

	t.Run("input list is untouched", func(t *testing.T) {
		base, _ := Add(nil, files(2))
		before := ids(base)
		_, _ = Add(base, files(2))
		assert.Equal(t, before, ids(base))
	})
}

func TestRemove(t *testing.T) {
	t.Run("removing the cover promotes the new first", func(t *testing.T) {
		list, _ := Add(nil, files(3))
		second := list[1].ID
		list, removed := Remove(list, list[0].ID)
		require.NotNil(t, removed)
		assert.True(t, removed.Cover)
		assert.Equal(t, second, list[0].ID)
		assert.True(t, list[0].Cover)
		assertInvariants(t, list)
	})

	t.Run("non cover removal keeps the cover", func(t *testing.T) {
		list, _ := Add(nil, files(3))
		list = SetCover(list, list[2].ID)
		cover := list[2].ID
		list, _ = Remove(list, list[0].ID)
		c, ok := Cover(list)
		require.True(t, ok)
		assert.Equal(t, cover, c.ID)
	})

	t.Run("absent id is idempotent", func(t *testing.T) {
		list, _ := Add(nil, files(2))
		out, removed := Remove(list, "missing")
		assert.Nil(t, removed)
		assert.Equal(t, list, out)

		empty, removed := Remove(nil, "missing")
		assert.Nil(t, removed)
		assert.Empty(t, empty)
	})

	t.Run("removing the last photo leaves no cover", func(t *testing.T) {
		list, _ := Add(nil, files(1))
		list, _ = Remove(list, list[0].ID)
		assert.Empty(t, list)
		_, ok := Cover(list)
		assert.False(t, ok)
	})
}

func TestAppend(t *testing.T) {
	existing := Existing("p1", "https://cdn/p1.jpg", TagKitchen, 4)
	existing.Cover = true

	list, ok := Append(nil, existing)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.True(t, list[0].Cover)
	assert.Equal(t, 0, list[0].Order)
	assert.Equal(t, 4, list[0].RemoteOrder)

	list, _ = Add(list, files(2))
	again, ok := Append(list, existing)
	assert.False(t, ok)
	assert.Equal(t, list, again)

	full, _ := Add(nil, files(MaxPhotos))
	_, ok = Append(full, Existing("p2", "u", TagOther, 0))
	assert.False(t, ok)

	list, _ = Add(nil, files(2))
	list, ok = Append(list, existing)
	require.True(t, ok)
	assert.Equal(t, "p1", list[2].ID)
	assert.False(t, list[2].Cover)
	assertInvariants(t, list)
}

func TestSetCoverAndTag(t *testing.T) {
	list, _ := Add(nil, files(3))
	target := list[1].ID

	list = SetCover(list, target)
	c, _ := Cover(list)
	assert.Equal(t, target, c.ID)
	assertInvariants(t, list)

	same := SetCover(list, "nope")
	assert.Equal(t, list, same)

	list = SetTag(list, target, TagKitchen)
	assert.Equal(t, TagKitchen, list[1].Tag)

	assert.True(t, ValidTag(TagLivingRoom))
	assert.False(t, ValidTag("garage"))
}

func TestReorder(t *testing.T) {
	list, _ := Add(nil, files(4))
	cover := list[0].ID
	want := []string{list[1].ID, list[2].ID, list[0].ID, list[3].ID}

	out := Reorder(list, 0, 2)
	assert.Equal(t, want, ids(out))
	c, _ := Cover(out)
	assert.Equal(t, cover, c.ID, "cover travels with its photo")
	assertInvariants(t, out)

	assert.Equal(t, ids(list), ids(Reorder(list, -1, 2)))
	assert.Equal(t, ids(list), ids(Reorder(list, 0, 4)))
	assert.Empty(t, Reorder(nil, 0, 1))
}

func TestFinalOrder(t *testing.T) {
	list, _ := Add(nil, files(4))
	list = SetCover(list, list[2].ID)
	final := FinalOrder(list)

	assert.Equal(t, []string{list[2].ID, list[0].ID, list[1].ID, list[3].ID}, ids(final))
	for i, d := range final {
		assert.Equal(t, i, d.Order)
	}
}

func TestExisting(t *testing.T) {
	d := Existing("p1", "https://cdn/p1.jpg", "garage", 3)
	assert.Equal(t, OriginExisting, d.Origin)
	assert.Equal(t, TagOther, d.Tag)
	assert.Equal(t, 3, d.RemoteOrder)
	assert.False(t, d.IsNew())
}

func TestInvariantsUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		var list []Draft
		for step := 0; step < 200; step++ {
			pick := func() string {
				if len(list) == 0 || rng.Intn(10) == 0 {
					return "absent"
				}
				return list[rng.Intn(len(list))].ID
			}
			switch rng.Intn(5) {
			case 0:
				list, _ = Add(list, files(rng.Intn(6)))
			case 1:
				list, _ = Remove(list, pick())
			case 2:
				list = SetCover(list, pick())
			case 3:
				list = SetTag(list, pick(), Tags[rng.Intn(len(Tags))])
			case 4:
				n := len(list) + 2
				list = Reorder(list, rng.Intn(n)-1, rng.Intn(n)-1)
			}
			assertInvariants(t, list)
		}
	}
}
