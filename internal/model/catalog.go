package model

// Activity is a kind of class the studio offers (yoga, spin, HIIT).
// Activities are provisioned out of band and only read by this service.
type Activity struct {
	ID          uint64 `json:"id"`          // activities.id
	Name        string `json:"name"`        // activities.name
	Description string `json:"description"` // activities.description
}

// Instructor teaches sessions.  Like activities, instructor records
// are provisioned out of band and read-only here.
type Instructor struct {
	ID   uint64 `json:"id"`   // instructors.id
	Name string `json:"name"` // instructors.name
	Bio  string `json:"bio"`  // instructors.bio
}
