package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrEventNotFound signals a pipeline record references a missing event.
	ErrEventNotFound = errors.New("contract: event not found")
	// ErrSponsorNotFound signals a pipeline record references a missing sponsor.
	ErrSponsorNotFound = errors.New("contract: sponsor not found")
	// ErrTierNotFound signals a pipeline record references a missing tier.
	ErrTierNotFound = errors.New("contract: tier not found")
)

// Directory reads the entities a render needs from the content repository.
type Directory interface {
	Event(ctx context.Context, eventID string) (EventInfo, error)
	Sponsor(ctx context.Context, sponsorID string) (SponsorInfo, error)
	Tier(ctx context.Context, tierID string) (TierInfo, error)
	AddOns(ctx context.Context, addOnIDs []string) ([]AddOnInfo, error)
}

// PGDirectory is the pgx-backed Directory.
type PGDirectory struct {
	pool *pgxpool.Pool
}

func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

func (d *PGDirectory) Event(ctx context.Context, eventID string) (EventInfo, error) {
	const query = `
		SELECT title, start_date, end_date, venue, city,
		       organizer_name, organizer_org_number, organizer_address, organizer_email
		FROM events
		WHERE id = $1
	`
	var ev EventInfo
	err := d.pool.QueryRow(ctx, query, eventID).Scan(
		&ev.Title, &ev.StartDate, &ev.EndDate, &ev.Venue, &ev.City,
		&ev.Organizer.Name, &ev.Organizer.OrgNumber, &ev.Organizer.Address, &ev.Organizer.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EventInfo{}, ErrEventNotFound
		}
		return EventInfo{}, fmt.Errorf("contract: load event: %w", err)
	}
	return ev, nil
}

func (d *PGDirectory) Sponsor(ctx context.Context, sponsorID string) (SponsorInfo, error) {
	const query = `SELECT name, org_number, address, website FROM sponsors WHERE id = $1`
	var sp SponsorInfo
	err := d.pool.QueryRow(ctx, query, sponsorID).Scan(&sp.Name, &sp.OrgNumber, &sp.Address, &sp.Website)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SponsorInfo{}, ErrSponsorNotFound
		}
		return SponsorInfo{}, fmt.Errorf("contract: load sponsor: %w", err)
	}
	return sp, nil
}

func (d *PGDirectory) Tier(ctx context.Context, tierID string) (TierInfo, error) {
	const query = `SELECT name, perks FROM tiers WHERE id = $1`
	var tier TierInfo
	err := d.pool.QueryRow(ctx, query, tierID).Scan(&tier.Name, &tier.Perks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TierInfo{}, ErrTierNotFound
		}
		return TierInfo{}, fmt.Errorf("contract: load tier: %w", err)
	}
	return tier, nil
}

func (d *PGDirectory) AddOns(ctx context.Context, addOnIDs []string) ([]AddOnInfo, error) {
	if len(addOnIDs) == 0 {
		return nil, nil
	}
	rows, err := d.pool.Query(ctx, `SELECT name FROM addons WHERE id = ANY($1) ORDER BY name`, addOnIDs)
	if err != nil {
		return nil, fmt.Errorf("contract: load addons: %w", err)
	}
	defer rows.Close()

	addOns := make([]AddOnInfo, 0, len(addOnIDs))
	for rows.Next() {
		var a AddOnInfo
		if err := rows.Scan(&a.Name); err != nil {
			return nil, fmt.Errorf("contract: scan addon: %w", err)
		}
		addOns = append(addOns, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contract: iterate addons: %w", err)
	}
	return addOns, nil
}
