package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feed описывает один внешний ICS календарь для импорта
type Feed struct {
	ID     string `yaml:"id"`   // внутренний идентификатор для дедупликации и логов
	Name   string `yaml:"name"` // человекочитаемое название
	URL    string `yaml:"url"`
	TeamID string `yaml:"team_id,omitempty"` // события привязываются к этой команде
}

// Feeds конфигурация импорта внешних календарей
type Feeds struct {
	HorizonDays int    `yaml:"horizon_days"` // сколько дней вперёд разворачивать RRULE
	Sources     []Feed `yaml:"sources"`
}

// LoadFeeds читает YAML со списком внешних календарей.
// Пустой путь означает, что импорт отключён.
func LoadFeeds(path string) (*Feeds, error) {
	if path == "" {
		return &Feeds{HorizonDays: 90}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds config: %w", err)
	}

	var feeds Feeds
	if err := yaml.Unmarshal(data, &feeds); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}

	if feeds.HorizonDays <= 0 {
		feeds.HorizonDays = 90
	}
	for i, src := range feeds.Sources {
		if src.URL == "" {
			return nil, fmt.Errorf("feed #%d: url is required", i+1)
		}
		if src.ID == "" {
			return nil, fmt.Errorf("feed #%d: id is required", i+1)
		}
	}

	return &feeds, nil
}
