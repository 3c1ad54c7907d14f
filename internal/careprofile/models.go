package careprofile

import (
	"strings"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
)

// Collection holds one document per care recipient.
const Collection = "care_profiles"

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// CareProfile is the person being cared for. It is the root of every other
// record in the service.
type CareProfile struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	Age          *int64    `json:"age,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateCareProfileRequest struct {
	Name         string `json:"name"`
	PhotoURL     string `json:"photo_url,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Age          *int64 `json:"age,omitempty"`
	Gender       string `json:"gender,omitempty"`
}

func (r *CreateCareProfileRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrNameRequired
	}
	return validateAge(r.Age)
}

// UpdateCareProfileRequest only touches the fields that are set.
type UpdateCareProfileRequest struct {
	Name         *string `json:"name,omitempty"`
	PhotoURL     *string `json:"photo_url,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	Age          *int64  `json:"age,omitempty"`
	Gender       *string `json:"gender,omitempty"`
}

func (r *UpdateCareProfileRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		if trimmed == "" {
			return ErrNameRequired
		}
		r.Name = &trimmed
	}
	return validateAge(r.Age)
}

func (r UpdateCareProfileRequest) patch() map[string]interface{} {
	patch := map[string]interface{}{}
	if r.Name != nil {
		patch["name"] = *r.Name
	}
	if r.PhotoURL != nil {
		patch["photo_url"] = *r.PhotoURL
	}
	if r.Relationship != nil {
		patch["relationship"] = *r.Relationship
	}
	if r.Age != nil {
		patch["age"] = *r.Age
	}
	if r.Gender != nil {
		patch["gender"] = *r.Gender
	}
	return patch
}

func validateAge(age *int64) error {
	if age != nil && (*age < 0 || *age > 150) {
		return ErrInvalidAge
	}
	return nil
}

type CareProfileListResponse struct {
	Profiles []CareProfile `json:"profiles"`
	Total    int           `json:"total"`
}

func (p *CareProfile) toDocument() map[string]interface{} {
	data := map[string]interface{}{
		"user_id":    p.UserID,
		"name":       p.Name,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
	if p.PhotoURL != "" {
		data["photo_url"] = p.PhotoURL
	}
	if p.Relationship != "" {
		data["relationship"] = p.Relationship
	}
	if p.Age != nil {
		data["age"] = *p.Age
	}
	if p.Gender != "" {
		data["gender"] = p.Gender
	}
	return data
}

func fromDocument(doc *docstore.Document) *CareProfile {
	p := &CareProfile{
		ID:           doc.ID,
		UserID:       docstore.StringField(doc.Data, "user_id"),
		Name:         docstore.StringField(doc.Data, "name"),
		PhotoURL:     docstore.StringField(doc.Data, "photo_url"),
		Relationship: docstore.StringField(doc.Data, "relationship"),
		Gender:       docstore.StringField(doc.Data, "gender"),
		CreatedAt:    docstore.TimeField(doc.Data, "created_at"),
		UpdatedAt:    docstore.TimeField(doc.Data, "updated_at"),
	}
	if age, ok := docstore.IntField(doc.Data, "age"); ok {
		p.Age = &age
	}
	return p
}
