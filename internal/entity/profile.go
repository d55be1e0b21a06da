package entity

import "github.com/mbeoliero/relay/pkg/constant"

// Profile represents a user profile row. Owned by the session provider;
// this client only ever reads it.
type Profile struct {
	Id          string  `json:"id" gorm:"column:id;primaryKey"`
	Email       string  `json:"email" gorm:"column:email"`
	Username    *string `json:"username" gorm:"column:username"`
	DisplayName *string `json:"display_name" gorm:"column:display_name"`
	CreatedAt   int64   `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt   int64   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// Title returns the name to display for this profile:
// display name, else email, else the unknown fallback.
func (p *Profile) Title() string {
	if p == nil {
		return constant.UnknownUserTitle
	}
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	if p.Email != "" {
		return p.Email
	}
	return constant.UnknownUserTitle
}

// SenderInfo is the denormalized sender projection carried on messages
// for rendering, resolved at read time.
type SenderInfo struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// ToSenderInfo converts a Profile to its sender projection
func (p *Profile) ToSenderInfo() *SenderInfo {
	if p == nil {
		return nil
	}
	name := ""
	if p.DisplayName != nil {
		name = *p.DisplayName
	}
	return &SenderInfo{
		DisplayName: name,
		Email:       p.Email,
	}
}
