package models

// UserDeletedEvent arrives on users.deleted from the identity service.
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}

// ProjectDeletedEvent is published on projects.deleted.
type ProjectDeletedEvent struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}
