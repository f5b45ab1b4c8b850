package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user document in MongoDB
type User struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Username  string             `json:"username" bson:"username"`
	Email     string             `json:"email" bson:"email"`
	CollegeID string             `json:"collegeId" bson:"collegeId"`
	UI        UserUI             `json:"ui" bson:"ui"`
	Online    OnlineStatus       `json:"online" bson:"online"`
}

// UserUI holds the profile customisations echoed to the client on connect
type UserUI struct {
	DP         string               `json:"dp" bson:"dp"`
	Pinned     []primitive.ObjectID `json:"pinned" bson:"pinned"`
	Background string               `json:"background" bson:"background"`
	Wallpaper  string               `json:"wallpaper" bson:"wallpaper"`
	Language   string               `json:"language" bson:"language"`
}

// OnlineStatus is the persisted view of presence; the live view is the registry.
type OnlineStatus struct {
	Is   bool      `json:"is" bson:"is"`
	Last time.Time `json:"last" bson:"last"`
}
