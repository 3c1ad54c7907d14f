package careprofile

import (
	"testing"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/stretchr/testify/assert"
)

func TestCareProfile_DocumentRoundTrip(t *testing.T) {
	age := int64(78)
	now := time.Date(2024, 5, 2, 10, 15, 30, 123456000, time.UTC)

	profiles := []CareProfile{
		{
			ID: "p1", UserID: "u1", Name: "Lola Remedios", PhotoURL: "https://cdn/x.jpg",
			Relationship: "grandmother", Age: &age, Gender: "female",
			CreatedAt: now, UpdatedAt: now.Add(time.Minute),
		},
		{ID: "p2", UserID: "u1", Name: "Tito Ben", CreatedAt: now, UpdatedAt: now},
	}

	for _, p := range profiles {
		p := p
		t.Run(p.ID, func(t *testing.T) {
			got := fromDocument(&docstore.Document{ID: p.ID, Data: p.toDocument()})
			assert.Equal(t, &p, got)
		})
	}
}

func TestCareProfile_OptionalFieldsOmitted(t *testing.T) {
	data := (&CareProfile{ID: "p", UserID: "u", Name: "n"}).toDocument()
	for _, key := range []string{"photo_url", "relationship", "age", "gender"} {
		_, ok := data[key]
		assert.False(t, ok, key)
	}
}

func TestCreateCareProfileRequest_Validate(t *testing.T) {
	neg := int64(-1)
	tests := []struct {
		name string
		req  CreateCareProfileRequest
		want error
	}{
		{"valid", CreateCareProfileRequest{Name: "Lola"}, nil},
		{"blank name", CreateCareProfileRequest{Name: "   "}, ErrNameRequired},
		{"negative age", CreateCareProfileRequest{Name: "Lola", Age: &neg}, ErrInvalidAge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.req.Validate(), tt.want)
		})
	}
}

func TestUpdateCareProfileRequest_Patch(t *testing.T) {
	name := "  Lola  "
	gender := "female"
	req := UpdateCareProfileRequest{Name: &name, Gender: &gender}

	assert.NoError(t, req.Validate())
	assert.Equal(t, map[string]interface{}{"name": "Lola", "gender": "female"}, req.patch())
	assert.Empty(t, UpdateCareProfileRequest{}.patch())
}
