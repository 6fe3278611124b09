package models

// Profile is the public view of a user, joined onto offers and matches on read
type Profile struct {
	ID         string `json:"id" bson:"_id"`
	FullName   string `json:"full_name" bson:"full_name"`
	AvatarURL  string `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	TrustScore int    `json:"trust_score" bson:"trust_score"`
	Verified   bool   `json:"verified" bson:"id_verified"`
}
