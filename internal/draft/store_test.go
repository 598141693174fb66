package draft

import (
	"testing"

	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetters(t *testing.T) {
	s := NewStore(flow.Linear)

	assert.True(t, s.SetPropertyType(Apartment))
	assert.False(t, s.SetPropertyType(Apartment), "same value is not a change")
	assert.True(t, s.SetRentMode(Daily))

	assert.True(t, s.SetLocation(Location{City: "  Lisbon ", Street: "Rua Augusta"}))
	assert.False(t, s.SetLocation(Location{City: "Lisbon", Street: "Rua Augusta"}))
	assert.Equal(t, "Lisbon", s.Draft().Location.City)

	assert.True(t, s.SetTitle("Sunny flat"))
	assert.True(t, s.SetDescription("Two rooms"))
	assert.True(t, s.SetPricing(Pricing{Price: 900, Deposit: 900, Commission: 50, Utilities: UtilitiesExtra}))
	assert.False(t, s.SetPricing(Pricing{Price: 900, Deposit: 900, Commission: 50, Utilities: UtilitiesExtra}))
}

func TestStoreAmenities(t *testing.T) {
	s := NewStore(flow.Linear)

	s.SetAmenities([]string{"wifi", " Parking", "wifi", ""})
	assert.Equal(t, []string{"parking", "wifi"}, s.Draft().Amenities)

	assert.True(t, s.ToggleAmenity("balcony"))
	assert.Equal(t, []string{"balcony", "parking", "wifi"}, s.Draft().Amenities)

	assert.True(t, s.ToggleAmenity("WIFI"))
	assert.Equal(t, []string{"balcony", "parking"}, s.Draft().Amenities)

	assert.False(t, s.ToggleAmenity("  "))
}

func TestStoreSteps(t *testing.T) {
	s := NewStore(flow.Linear)
	assert.Equal(t, flow.StepMode, s.Step())

	assert.True(t, s.SetStep(3))
	assert.Equal(t, flow.StepPhotos, s.Step())

	assert.True(t, s.SetStep(99))
	assert.Equal(t, flow.StepPublish, s.Step())

	t.Run("switching flow keeps the index", func(t *testing.T) {
		s := NewStore(flow.Linear)
		require.True(t, s.SetFlow(flow.BranchingFast))
		assert.Equal(t, 0, s.Draft().StepIndex)
		assert.Equal(t, flow.StepMode, s.Step())
		assert.False(t, s.SetFlow(flow.BranchingFast))
	})
}

func TestStorePendingDeletion(t *testing.T) {
	s := NewStore(flow.Edit)
	existing := photo.Existing("p1", "https://cdn/p1.jpg", photo.TagKitchen, 0)

	assert.True(t, s.QueueDeletion(existing))
	assert.False(t, s.QueueDeletion(existing), "queued once")
	assert.False(t, s.QueueDeletion(photo.Draft{ID: "n1", Origin: photo.OriginNew}))

	got, ok := s.Unqueue("p1")
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)
	assert.Empty(t, s.Draft().PendingDeletion)

	_, ok = s.Unqueue("p1")
	assert.False(t, ok)
}

func TestStoreDraftIsACopy(t *testing.T) {
	s := NewStore(flow.Linear)
	list, _ := photo.Add(nil, []photo.File{{Name: "a.jpg"}})
	s.SetPhotos(list)
	s.SetAmenities([]string{"wifi"})

	d := s.Draft()
	d.Photos[0].Tag = photo.TagFacade
	d.Amenities[0] = "pool"

	assert.Equal(t, photo.TagOther, s.Draft().Photos[0].Tag)
	assert.Equal(t, []string{"wifi"}, s.Draft().Amenities)
}

func TestStoreResetAndHydrate(t *testing.T) {
	s := NewStore(flow.Linear)
	s.SetTitle("temp")
	s.SetRecordID("rec-1")

	s.Reset(flow.BranchingManual)
	d := s.Draft()
	assert.Empty(t, d.Title)
	assert.False(t, d.Editing())
	assert.Equal(t, flow.BranchingManual, d.Flow)

	s.Hydrate(&Record{
		ID: "rec-9",
		Payload: Payload{
			PropertyType: House,
			Title:        "Old title",
			Description:  "Old description",
			Amenities:    []string{"wifi", "elevator"},
			Pricing:      Pricing{Price: 1200},
		},
		Photos: []RemotePhoto{
			{ID: "p2", URL: "https://cdn/p2.jpg", Tag: photo.TagKitchen, SortOrder: 1},
			{ID: "p1", URL: "https://cdn/p1.jpg", Tag: photo.TagFacade, SortOrder: 0},
			{ID: "p3", URL: "https://cdn/p3.jpg", Tag: "unknown", SortOrder: 2},
		},
	})

	d = s.Draft()
	assert.True(t, d.Editing())
	assert.Equal(t, flow.Edit, d.Flow)
	assert.Equal(t, flow.StepPhotos, d.Step())
	require.Len(t, d.Photos, 3)
	assert.Equal(t, "p1", d.Photos[0].ID)
	assert.True(t, d.Photos[0].Cover)
	assert.Equal(t, photo.TagOther, d.Photos[2].Tag)
	assert.Equal(t, 1, d.Photos[1].RemoteOrder)
	assert.Equal(t, []string{"elevator", "wifi"}, d.Amenities)
	require.NotNil(t, d.Original)
	assert.Equal(t, "Old title", d.Original.Title)
}

func TestFromRecordUsesHydratedPositions(t *testing.T) {
	d := FromRecord(&Record{
		ID: "rec-4",
		Photos: []RemotePhoto{
			{ID: "b", SortOrder: 20},
			{ID: "a", SortOrder: 10},
			{ID: "c", SortOrder: 35},
		},
	})

	require.Len(t, d.Photos, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, d.Photos[i].ID)
		assert.Equal(t, i, d.Photos[i].Order)
		assert.Equal(t, i, d.Photos[i].RemoteOrder, "remote order is the dense hydrated position")
	}
}

func TestPayload(t *testing.T) {
	p := New(flow.Linear).Payload()
	assert.NotNil(t, p.Amenities, "amenities serialise as an empty list")
}
