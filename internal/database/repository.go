package database

import (
	"github.com/robalyx/guildpulse/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	guild   *models.GuildModel
	message *models.MessageModel
	member  *models.MemberModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		guild:   models.NewGuild(db, logger),
		message: models.NewMessage(db, logger),
		member:  models.NewMember(db, logger),
	}
}

// Guild returns the guild model repository.
func (r *Repository) Guild() *models.GuildModel {
	return r.guild
}

// Message returns the message model repository.
func (r *Repository) Message() *models.MessageModel {
	return r.message
}

// Member returns the member model repository.
func (r *Repository) Member() *models.MemberModel {
	return r.member
}
