package main

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ConnectionRegistry owns every Connection row. All mutations are single
// statements or explicit transactions, so a partially written connection is
// never observable.
type ConnectionRegistry struct {
	db           *gorm.DB
	maxPerServer int
}

func NewConnectionRegistry(db *gorm.DB, cfg *Config) *ConnectionRegistry {
	return &ConnectionRegistry{
		db:           db,
		maxPerServer: cfg.MaxConnectionsPerServer,
	}
}

// Create links (server1, channel1) with (server2, channel2). It fails with
// ErrSameServer for same-server pairs, ErrQuotaExceeded when either server is
// at its active-connection limit, and ErrDuplicateConnection when an active
// connection already links this exact channel pair. A channel reused in a
// connection to a different remote channel is allowed.
func (r *ConnectionRegistry) Create(server1, channel1, server2, channel2, name, createdBy, description string) (*Connection, error) {
	if server1 == server2 {
		return nil, ErrSameServer
	}

	conn := &Connection{
		Server1ID:   server1,
		Channel1ID:  channel1,
		Server2ID:   server2,
		Channel2ID:  channel2,
		Name:        name,
		CreatedBy:   createdBy,
		Description: description,
		Active:      true,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, server := range []string{server1, server2} {
			var count int64
			err := tx.Model(&Connection{}).
				Where("(server1_id = ? OR server2_id = ?) AND active = ?", server, server, true).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to count connections for server %s: %w", server, err)
			}
			if count >= int64(r.maxPerServer) {
				return ErrQuotaExceeded
			}
		}

		var dup int64
		err := tx.Model(&Connection{}).
			Where("active = ?", true).
			Where("(channel1_id = ? AND channel2_id = ?) OR (channel1_id = ? AND channel2_id = ?)",
				channel1, channel2, channel2, channel1).
			Count(&dup).Error
		if err != nil {
			return fmt.Errorf("failed to check for duplicate connection: %w", err)
		}
		if dup > 0 {
			return ErrDuplicateConnection
		}

		return tx.Create(conn).Error
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// GetByID returns the active connection with the given id, or ErrNotFound.
func (r *ConnectionRegistry) GetByID(id uint) (*Connection, error) {
	var conn Connection
	err := r.db.Where("id = ? AND active = ?", id, true).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection %d: %w", id, err)
	}
	return &conn, nil
}

// ListByChannel returns every active connection that has the channel as
// either endpoint.
func (r *ConnectionRegistry) ListByChannel(channelID string) ([]Connection, error) {
	var conns []Connection
	err := r.db.
		Where("(channel1_id = ? OR channel2_id = ?) AND active = ?", channelID, channelID, true).
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list connections for channel %s: %w", channelID, err)
	}
	return conns, nil
}

// ListByServer returns every active connection referencing the server,
// newest first.
func (r *ConnectionRegistry) ListByServer(serverID string) ([]Connection, error) {
	var conns []Connection
	err := r.db.
		Where("(server1_id = ? OR server2_id = ?) AND active = ?", serverID, serverID, true).
		Order("created_at DESC, id DESC").
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list connections for server %s: %w", serverID, err)
	}
	return conns, nil
}

// SoftDelete marks the connection inactive. It returns false without error
// when the connection is missing or already inactive, so repeated deletes
// are harmless.
func (r *ConnectionRegistry) SoftDelete(id uint) (bool, error) {
	res := r.db.Model(&Connection{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete connection %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountActiveForServer returns how many active connections reference the
// server as either endpoint.
func (r *ConnectionRegistry) CountActiveForServer(serverID string) (int64, error) {
	var count int64
	err := r.db.Model(&Connection{}).
		Where("(server1_id = ? OR server2_id = ?) AND active = ?", serverID, serverID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count connections for server %s: %w", serverID, err)
	}
	return count, nil
}

// DeactivateAllForServer bulk soft-deletes every connection referencing the
// server. Invoked when the bot loses access to a guild.
func (r *ConnectionRegistry) DeactivateAllForServer(serverID string) error {
	err := r.db.Model(&Connection{}).
		Where("server1_id = ? OR server2_id = ?", serverID, serverID).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate connections for server %s: %w", serverID, err)
	}
	return nil
}
