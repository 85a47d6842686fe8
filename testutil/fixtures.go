package testutil

import (
	"time"

	"notepilot/model"
)

// SampleNotes returns a small, deterministic note set.
func SampleNotes() []model.Note {
	return []model.Note{
		{
			ID:        "n1",
			Title:     "Groceries",
			Content:   "- milk\n- eggs\n- **coffee**",
			UpdatedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
			IsPinned:  true,
		},
		{
			ID:        "n2",
			Title:     "Project Apollo",
			Content:   `[{"type":"paragraph","content":[{"type":"text","text":"Launch window opens in March"}]}]`,
			UpdatedAt: time.Date(2024, 1, 3, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:        "n3",
			Title:     "",
			Content:   "",
			UpdatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		},
	}
}

// UserMessage returns a single user message for simple tests.
func UserMessage(content string) []model.Message {
	return []model.Message{
		{
			Role:      model.RoleUser,
			Content:   content,
			Timestamp: time.Now(),
		},
	}
}
