package types

import "time"

// GuildMember holds the rolling per-guild counters of one user.
type GuildMember struct {
	GuildID       uint64    `bun:",pk"                json:"guildId,string"`
	UserID        uint64    `bun:",pk"                json:"userId,string"`
	Username      string    `bun:",notnull,default:''" json:"username"`
	MessageCount  int64     `bun:",notnull,default:0" json:"messageCount"`
	GuildScore    float64   `bun:",notnull,default:0" json:"guildScore"`
	LastMessageAt time.Time `bun:",nullzero"          json:"lastMessageAt"`
	JoinedAt      time.Time `bun:",nullzero"          json:"joinedAt"`
}
