package model

import "time"

// Session represents one scheduled, bookable class instance: a yoga
// class on Tuesday at 18:00 with twelve mats, for example.  Capacity
// is fixed when the session is provisioned; SlotsRemaining is the only
// mutable field and is decremented exclusively through the catalog's
// guarded reserve operation.  There is no increment path – this
// service has no cancellation flow.
//
// Fields:
//  ID             – primary key identifier.
//  ActivityID     – activity being taught (references activities).
//  InstructorID   – instructor teaching the session (references instructors).
//  StartsAt       – when the session begins.
//  DurationMin    – length of the session in minutes.
//  CapacityTotal  – fixed number of slots; immutable after creation.
//  SlotsRemaining – slots still free; 0 <= SlotsRemaining <= CapacityTotal.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Session struct {
	ID             uint64    // sessions.id
	ActivityID     uint64    // sessions.activity_id
	InstructorID   uint64    // sessions.instructor_id
	StartsAt       time.Time // sessions.starts_at
	DurationMin    uint32    // sessions.duration_min
	CapacityTotal  uint32    // sessions.capacity_total
	SlotsRemaining uint32    // sessions.slots_remaining
	CreatedAt      time.Time // sessions.created_at
	UpdatedAt      time.Time // sessions.updated_at
}

// SessionDetail is the browse-facing view of a session with the
// activity and instructor names joined in.  It is what the public
// catalog endpoints return.
type SessionDetail struct {
	ID             uint64    `json:"id"`
	Activity       string    `json:"activity"`
	Instructor     string    `json:"instructor"`
	StartsAt       time.Time `json:"starts_at"`
	DurationMin    uint32    `json:"duration_min"`
	CapacityTotal  uint32    `json:"capacity_total"`
	SlotsRemaining uint32    `json:"slots_remaining"`
}
