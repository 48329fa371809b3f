package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/room-booking/internal/application"
)

// roomsFile is the administrator maintained catalog seeded at boot.
//
//	rooms:
//	  - id: "101"
//	    name: Room 101
//	    location: Floor 1
//	    capacity: 6
type roomsFile struct {
	Rooms []roomEntry `yaml:"rooms"`
}

type roomEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Capacity int    `yaml:"capacity"`
}

func loadRooms(path string) ([]application.RoomInput, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms file: %w", err)
	}
	return parseRooms(raw)
}

func parseRooms(raw []byte) ([]application.RoomInput, error) {
	var doc roomsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse rooms file: %w", err)
	}
	inputs := make([]application.RoomInput, 0, len(doc.Rooms))
	for _, entry := range doc.Rooms {
		inputs = append(inputs, application.RoomInput{
			ID:       entry.ID,
			Name:     entry.Name,
			Location: entry.Location,
			Capacity: entry.Capacity,
		})
	}
	return inputs, nil
}
