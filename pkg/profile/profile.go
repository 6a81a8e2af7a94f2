// Package profile defines the records that flow through the enrichment
// pipeline: the watched identifiers, the primary profile returned by the
// bulk lookup, and the merged record handed to persistence.
package profile

import "time"

// DefaultPhotoURL is used when the platform omits the primary photo.
const DefaultPhotoURL = "https://vk.com/images/camera_200.png"

// WatchEntry is one tracked (local id, platform id) pair.
type WatchEntry struct {
	// LocalID is the durable key used by the persistence layer.
	LocalID int64 `json:"local_id"`

	// PlatformID is the remote platform's numeric user identifier.
	PlatformID int64 `json:"platform_id"`
}

// City is the structured city object attached to a profile.
type City struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// LastSeen describes when and from which platform the user was last online.
type LastSeen struct {
	Time     int64 `json:"time"`
	Platform int   `json:"platform,omitempty"`
}

// At returns the last-seen moment as a time.Time.
func (l LastSeen) At() time.Time {
	return time.Unix(l.Time, 0)
}

// Counters is the nested counters object of the bulk lookup. Fields the
// platform did not return stay nil.
type Counters struct {
	Friends       *int `json:"friends,omitempty"`
	Photos        *int `json:"photos,omitempty"`
	Followers     *int `json:"followers,omitempty"`
	Subscriptions *int `json:"subscriptions,omitempty"`
	Groups        *int `json:"groups,omitempty"`
}

// PrimaryProfile holds the attributes returned by one bulk profile lookup.
type PrimaryProfile struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Online    int       `json:"online"`
	Photo200  string    `json:"photo_200,omitempty"`
	LastSeen  *LastSeen `json:"last_seen,omitempty"`
	City      *City     `json:"city,omitempty"`

	// BirthDate is "D.M" or "D.M.YYYY" depending on the user's privacy settings.
	BirthDate *string  `json:"bdate,omitempty"`
	Relation  *int     `json:"relation,omitempty"`
	Counters  Counters `json:"counters"`
	Domain    string   `json:"domain"`
}

// EnrichedRecord is a PrimaryProfile merged with the auxiliary counters.
// A nil counter means the lookup was denied or failed; it is never zero-filled.
type EnrichedRecord struct {
	LocalID    int64     `json:"local_id"`
	PlatformID int64     `json:"id"`
	Name       string    `json:"name"`
	Online     int       `json:"online"`
	Photo200   string    `json:"photo_200"`
	LastSeen   *LastSeen `json:"last_seen"`
	City       *string   `json:"city"`
	BirthDate  *string   `json:"bdate"`
	Relation   *int      `json:"relation"`
	Domain     string    `json:"domain"`

	FriendsCount       *int `json:"friends_count"`
	FollowersCount     *int `json:"followers_count"`
	SubscriptionsCount *int `json:"subscriptions_count"`
	GroupsCount        *int `json:"groups_count"`
	WallCount          *int `json:"wall_count"`

	FriendsCountFromCounters *int `json:"friends_count_from_counters"`
	PhotosCount              *int `json:"photos_count"`
}

// NewEnrichedRecord seeds a record from the primary profile. Auxiliary
// counters are left nil for the caller to fill.
func NewEnrichedRecord(entry WatchEntry, p PrimaryProfile) EnrichedRecord {
	rec := EnrichedRecord{
		LocalID:                  entry.LocalID,
		PlatformID:               entry.PlatformID,
		Name:                     p.DisplayName(),
		Online:                   p.Online,
		Photo200:                 p.Photo200,
		LastSeen:                 p.LastSeen,
		BirthDate:                p.BirthDate,
		Relation:                 p.Relation,
		Domain:                   p.Domain,
		FriendsCountFromCounters: p.Counters.Friends,
		PhotosCount:              p.Counters.Photos,
	}
	if rec.Photo200 == "" {
		rec.Photo200 = DefaultPhotoURL
	}
	if p.City != nil && p.City.Title != "" {
		title := p.City.Title
		rec.City = &title
	}
	return rec
}

// DisplayName joins first and last name.
func (p PrimaryProfile) DisplayName() string {
	first, last := p.FirstName, p.LastName
	if first == "" {
		first = "First Name"
	}
	if last == "" {
		last = "Last Name"
	}
	return first + " " + last
}
