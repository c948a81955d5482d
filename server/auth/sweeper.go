package auth

import (
	"time"

	"github.com/inkpressd/inkpress/server/model"
)

const sweepInterval = time.Hour

// StartSessionSweeper runs SweepSessions on a timer until Close() is
// called. One sweep runs immediately on startup.
func (a *AuthServer) StartSessionSweeper() {
	a.sweeperStop = make(chan bool)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			a.SweepSessions()
			select {
			case <-a.sweeperStop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (a *AuthServer) StopSessionSweeper() {
	if a.sweeperStop != nil {
		close(a.sweeperStop)
		a.sweeperStop = nil
	}
}

// SweepSessions deletes sessions that have hit their hard expiry, or that
// have been idle longer than SessionIdleExpiry.
func (a *AuthServer) SweepSessions() {
	now := a.timeNow()
	idleCutoff := now.Add(-SessionIdleExpiry)
	result := a.db.Where("updated_at < ? OR (expires_at IS NOT NULL AND expires_at <= ?)", idleCutoff, now).Delete(&model.Session{})
	if result.Error != nil {
		a.log.Errorf("Session sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected != 0 {
		a.log.Infof("Session sweep removed %v expired sessions", result.RowsAffected)
	}
}
