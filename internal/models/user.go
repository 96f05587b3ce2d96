package models

// UserProfile is the public slice of a user record served by the identity
// service; the chat core never sees credentials.
type UserProfile struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// ListingSummary is the preview of a listing a conversation is about.
type ListingSummary struct {
	ID           string   `json:"id"`
	PropertyName string   `json:"propertyName"`
	Images       []string `json:"images,omitempty"`
}
