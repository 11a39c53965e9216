package models

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Profile is keyed by the owning user's identifier and overwritten
// wholesale on every update. Only the owner ever writes it, which is
// what makes last-writer-wins at whole-profile granularity safe.
type Profile struct {
	ID       string         `json:"id" cbor:"id"`
	Role     Role           `json:"role" cbor:"role"`
	Name     string         `json:"name" cbor:"name"`
	Avatar   string         `json:"avatar,omitempty" cbor:"avatar,omitempty"`
	Bio      string         `json:"bio,omitempty" cbor:"bio,omitempty"`
	City     string         `json:"city,omitempty" cbor:"city,omitempty"`
	Subjects []string       `json:"subjects,omitempty" cbor:"subjects,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty" cbor:"attrs,omitempty"`
	Deleted  bool           `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

func (p Profile) RecordID() string { return p.ID }
func (p Profile) IsDeleted() bool  { return p.Deleted }

func (p Profile) AsDeleted() Profile {
	p.Deleted = true
	return p
}

// User is a projection of a profile: identity, role and a pointer back
// to the owning profile. Users are derived, never independently edited.
type User struct {
	ID        string `json:"id" cbor:"id"`
	Name      string `json:"name" cbor:"name"`
	Role      Role   `json:"role" cbor:"role"`
	ProfileID string `json:"profile_id" cbor:"profile_id"`
	Deleted   bool   `json:"deleted,omitempty" cbor:"deleted,omitempty"`
}

func (u User) RecordID() string { return u.ID }
func (u User) IsDeleted() bool  { return u.Deleted }

func (u User) AsDeleted() User {
	u.Deleted = true
	return u
}

// UserFromProfile derives the user projection for a profile.
func UserFromProfile(p Profile) User {
	return User{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		ProfileID: p.ID,
		Deleted:   p.Deleted,
	}
}
