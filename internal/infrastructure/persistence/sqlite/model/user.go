package model

import "time"

type User struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (User) TableName() string {
	return "users"
}

// RepositoryOwner links a user who directly owns a repository.
type RepositoryOwner struct {
	RepositoryID string `gorm:"column:repository_id;type:text;primaryKey"`
	UserID       string `gorm:"column:user_id;type:text;not null;index"`
}

func (RepositoryOwner) TableName() string {
	return "repository_owners"
}

type Organization struct {
	ID   string `gorm:"column:id;type:text;primaryKey"`
	Name string `gorm:"column:name;type:text;not null"`
}

func (Organization) TableName() string {
	return "organizations"
}

type OrganizationMember struct {
	OrganizationID string `gorm:"column:organization_id;type:text;primaryKey"`
	UserID         string `gorm:"column:user_id;type:text;primaryKey"`
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}

// OrganizationRepository links a repository owned by an organization.
type OrganizationRepository struct {
	OrganizationID string `gorm:"column:organization_id;type:text;primaryKey"`
	RepositoryID   string `gorm:"column:repository_id;type:text;primaryKey"`
}

func (OrganizationRepository) TableName() string {
	return "organization_repositories"
}
