package models

// Listing is a room or flat offered by a landlord. Read-only here.
type Listing struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	RoomType         string `json:"roomType"`
	LandlordID       string `gorm:"index" json:"landlordId"`
	RoommatesCurrent int    `json:"roommatesCurrent"`
	RoommatesMax     int    `json:"roommatesMax"`
}

// RoommateRequest is a profile posted by someone looking for a roommate. Read-only here.
type RoommateRequest struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Budget   int    `json:"budget"`
	RoomType string `json:"roomType"`
	UserID   string `gorm:"index" json:"userId"`
}
