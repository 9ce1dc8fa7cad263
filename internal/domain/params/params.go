package params

import (
	"errors"
	"time"
)

// CurrentVersion is the parameters schema version written by this build.
const CurrentVersion = 2

// Dispute window bounds and the administrative fee cap. Session records pin
// their own fee rate at lock time, so raising the cap never changes open
// sessions.
const (
	MinDisputeWindow = 60 * time.Second
	MaxDisputeWindow = 30 * 24 * time.Hour
	MaxFeeBps        = 1000
)

var (
	ErrAlreadyInitialized   = errors.New("parameters already initialized")
	ErrNotInitialized       = errors.New("parameters not initialized")
	ErrUnauthorized         = errors.New("caller is not the administrator")
	ErrInvalidDisputeWindow = errors.New("dispute window out of bounds")
	ErrInvalidFeeBps        = errors.New("fee bps out of bounds")
	ErrInvalidTreasury      = errors.New("treasury address must not be empty")
)

// Parameters is the singleton process configuration: who administers the
// engine, where fees go, and the defaults applied to new sessions.
type Parameters struct {
	Version       int           `json:"version"`
	Admin         string        `json:"admin"`
	Treasury      string        `json:"treasury"`
	FeeBps        int           `json:"feeBps"`
	DisputeWindow time.Duration `json:"disputeWindow"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// New builds an initialized parameter set. An empty treasury defaults to the
// administrator account until explicitly set.
func New(admin, treasury string, feeBps int, window time.Duration, now time.Time) (*Parameters, error) {
	if err := ValidateFeeBps(feeBps); err != nil {
		return nil, err
	}
	if err := ValidateDisputeWindow(window); err != nil {
		return nil, err
	}
	if treasury == "" {
		treasury = admin
	}
	return &Parameters{
		Version:       CurrentVersion,
		Admin:         admin,
		Treasury:      treasury,
		FeeBps:        feeBps,
		DisputeWindow: window,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ValidateFeeBps checks the administrative fee rate against the setter cap.
func ValidateFeeBps(bps int) error {
	if bps < 0 || bps > MaxFeeBps {
		return ErrInvalidFeeBps
	}
	return nil
}

// ValidateDisputeWindow checks the window against the allowed bounds.
func ValidateDisputeWindow(d time.Duration) error {
	if d < MinDisputeWindow || d > MaxDisputeWindow {
		return ErrInvalidDisputeWindow
	}
	return nil
}

// RequireAdmin returns ErrUnauthorized unless account is the administrator.
func (p *Parameters) RequireAdmin(account string) error {
	if account != p.Admin {
		return ErrUnauthorized
	}
	return nil
}

func (p *Parameters) SetFeeBps(bps int, now time.Time) error {
	if err := ValidateFeeBps(bps); err != nil {
		return err
	}
	p.FeeBps = bps
	p.UpdatedAt = now
	return nil
}

func (p *Parameters) SetDisputeWindow(d time.Duration, now time.Time) error {
	if err := ValidateDisputeWindow(d); err != nil {
		return err
	}
	p.DisputeWindow = d
	p.UpdatedAt = now
	return nil
}

func (p *Parameters) SetTreasury(addr string, now time.Time) error {
	if addr == "" {
		return ErrInvalidTreasury
	}
	p.Treasury = addr
	p.UpdatedAt = now
	return nil
}

// Migrate upgrades a parameters record loaded from an older schema version.
// Records written before version 2 could carry an unset treasury; those fall
// back to the administrator account. Returns true when the record changed.
func (p *Parameters) Migrate() bool {
	if p.Version >= CurrentVersion {
		return false
	}
	if p.Treasury == "" {
		p.Treasury = p.Admin
	}
	p.Version = CurrentVersion
	return true
}
