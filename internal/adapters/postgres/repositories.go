package postgres

import (
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Feed     ports.FeedWriter
	Reads    ports.FeedReader
	Schedule ports.ScheduleRepository
	Outbox   ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Feed:     &feedRepository{db: db},
		Reads:    &readRepository{db: db},
		Schedule: &scheduleRepository{db: db},
		Outbox:   &outboxRepository{db: db},
	}
}
