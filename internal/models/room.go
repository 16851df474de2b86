package models

type Room struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Capacity int      `yaml:"capacity" json:"capacity"`
	Features []string `yaml:"features" json:"features"`
	Image    string   `yaml:"image" json:"image"`
}

// DefaultRooms returns the built-in two-room catalogue used when no rooms
// file is configured. Catalogue order matters: the first room is bound to
// the first flag column of the sheet, the second to the next one.
func DefaultRooms() []Room {
	return []Room{
		{
			ID:       "nha-trang",
			Name:     "Nha Trang",
			Capacity: 8,
			Features: []string{"tv", "whiteboard", "video"},
			Image:    "nha-trang.jpg",
		},
		{
			ID:       "da-lat",
			Name:     "Da Lat",
			Capacity: 4,
			Features: []string{"whiteboard"},
			Image:    "da-lat.jpg",
		},
	}
}

func FindRoom(rooms []Room, id string) (Room, bool) {
	for _, r := range rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}
