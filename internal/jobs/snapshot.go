package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"studentdesk/internal/models"
	"studentdesk/internal/query"
	"studentdesk/internal/repository"
)

type Uploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type roster struct {
	TakenAt  time.Time        `json:"takenAt"`
	Count    int              `json:"count"`
	Students []models.Student `json:"students"`
}

// Snapshotter exports the whole student roster as one JSON object.
type Snapshotter struct {
	students repository.StudentStore
	uploader Uploader
	log      zerolog.Logger
	now      func() time.Time
}

func NewSnapshotter(students repository.StudentStore, uploader Uploader, log zerolog.Logger) *Snapshotter {
	return &Snapshotter{
		students: students,
		uploader: uploader,
		log:      log,
		now:      time.Now,
	}
}

func (s *Snapshotter) Run(ctx context.Context) (string, error) {
	students, err := s.students.List(ctx, query.StudentFilter{SortByName: true})
	if err != nil {
		return "", fmt.Errorf("list students: %w", err)
	}
	if students == nil {
		students = []models.Student{}
	}

	takenAt := s.now().UTC()
	body, err := json.Marshal(roster{TakenAt: takenAt, Count: len(students), Students: students})
	if err != nil {
		return "", fmt.Errorf("encode roster: %w", err)
	}

	key := fmt.Sprintf("rosters/%s/roster-%s.json", takenAt.Format("2006/01/02"), takenAt.Format("20060102T150405Z"))
	if err := s.uploader.Put(ctx, key, body, "application/json"); err != nil {
		return "", err
	}

	s.log.Info().Str("key", key).Int("students", len(students)).Msg("roster snapshot uploaded")
	return key, nil
}
